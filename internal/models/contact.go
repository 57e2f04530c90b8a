package models

// ContactRequest is a lead captured by the widget's contact form.
type ContactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type ContactResponse struct {
	Success bool `json:"success"`
}
