package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"resume-relay/internal/client"
	"resume-relay/internal/conversation"
	"resume-relay/internal/models"
)

var chatSystemPrompt string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start an interactive chat with the resume assistant.

Commands:
  /reset  start over, keeping the system prompt
  /retry  resend the last message that failed
  /quit   leave

Ctrl-C cancels a reply that is still in flight.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSystemPrompt, "system", conversation.DefaultSystemPrompt, "system prompt kept at the top of the conversation")
}

func runChat(cmd *cobra.Command, args []string) error {
	conv := conversation.New(chatSystemPrompt)
	return chatLoop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), conv, newClient())
}

// chatLoop reads lines until EOF or /quit. A failed turn prints an error and
// leaves the conversation as it was.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, conv *conversation.Conversation, sender conversation.Sender) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	fmt.Fprintln(out, "Ask me about the resume. /reset, /retry, /quit.")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			conv.Reset()
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		case "/retry":
			if conv.Pending() == "" {
				fmt.Fprintln(out, "Nothing to retry.")
				continue
			}
			turn(ctx, out, func(ctx context.Context) (models.ChatResponse, error) {
				return conv.Retry(ctx, sender)
			})
			continue
		}

		turn(ctx, out, func(ctx context.Context) (models.ChatResponse, error) {
			return conv.Send(ctx, sender, line)
		})
	}
}

// turn runs one request that Ctrl-C can cancel without ending the session.
func turn(parent context.Context, out io.Writer, send func(ctx context.Context) (models.ChatResponse, error)) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	resp, err := send(ctx)
	if err != nil {
		fmt.Fprintf(out, "! %s\n", describeError(err))
		fmt.Fprintln(out, "  Type /retry to send it again.")
		return
	}

	reply := resp.Reply
	if reply == "" {
		reply = "(no answer)"
	}
	fmt.Fprintln(out, reply)
	if !resp.Handled {
		fmt.Fprintln(out, "  (the assistant was not confident about this one; try the contact command)")
	}
}

// describeError turns relay envelopes into one readable line.
func describeError(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		msg := fmt.Sprintf("%s (HTTP %d)", apiErr.Message, apiErr.Status)
		for _, is := range apiErr.Issues {
			if is.Field != "" {
				msg += fmt.Sprintf("; %s: %s", is.Field, is.Message)
			} else {
				msg += "; " + is.Message
			}
		}
		return msg
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return err.Error()
	}
}
