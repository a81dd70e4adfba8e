// Package intake validates raw form input before it reaches a collection.
package intake

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/user/theo/internal/types"
)

// DateLayout is the calendar date format accepted for events.
const DateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("image", func(fl validator.FieldLevel) bool {
		return strings.HasPrefix(fl.Field().String(), "image/")
	}); err != nil {
		panic(fmt.Sprintf("register image validation: %v", err))
	}
	return v
}

// FieldError describes one rejected field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " (" + f.Rule + ")"
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

// EventForm is the raw input for a new event.
type EventForm struct {
	Title string `json:"title" validate:"required"`
	Date  string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time  string `json:"time"`
	Theme string `json:"theme"`
	Notes string `json:"notes"`
}

// Event trims and validates the form.
func (f EventForm) Event() (types.Event, error) {
	f.Title, f.Date, f.Time = strings.TrimSpace(f.Title), strings.TrimSpace(f.Date), strings.TrimSpace(f.Time)
	f.Theme, f.Notes = strings.TrimSpace(f.Theme), strings.TrimSpace(f.Notes)
	if err := check(f); err != nil {
		return types.Event{}, err
	}
	return types.Event{Title: f.Title, Date: f.Date, Time: f.Time, Theme: f.Theme, Notes: f.Notes}, nil
}

// IdeaForm is the raw input for a new idea.
type IdeaForm struct {
	Title       string `json:"title" validate:"required"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Description string `json:"description"`
}

// Idea trims and validates the form. Priority is matched case-insensitively.
func (f IdeaForm) Idea() (types.Idea, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Priority = strings.ToLower(strings.TrimSpace(f.Priority))
	f.Description = strings.TrimSpace(f.Description)
	if err := check(f); err != nil {
		return types.Idea{}, err
	}
	return types.Idea{Title: f.Title, Priority: f.Priority, Description: f.Description}, nil
}

// MessageForm is the raw input for a logged message.
type MessageForm struct {
	Text string `json:"text" validate:"required"`
}

// Message trims and validates the form, stamping CreatedAt with now.
func (f MessageForm) Message(now time.Time) (types.Message, error) {
	f.Text = strings.TrimSpace(f.Text)
	if err := check(f); err != nil {
		return types.Message{}, err
	}
	return types.Message{Text: f.Text, CreatedAt: now}, nil
}

// ContactForm is the raw input for a contact profile.
type ContactForm struct {
	Phone   string `json:"phone" validate:"required"`
	Profile string `json:"profile"`
	Notes   string `json:"notes"`
}

// Contact trims and validates the form.
func (f ContactForm) Contact() (types.ContactProfile, error) {
	f.Phone, f.Profile, f.Notes = strings.TrimSpace(f.Phone), strings.TrimSpace(f.Profile), strings.TrimSpace(f.Notes)
	if err := check(f); err != nil {
		return types.ContactProfile{}, err
	}
	return types.ContactProfile{Phone: f.Phone, Profile: f.Profile, Notes: f.Notes}, nil
}

// MediaForm is an image already read into memory.
type MediaForm struct {
	Name        string `validate:"required"`
	ContentType string `validate:"required,image"`
	DataURL     string `validate:"required"`
}

// Media validates the form.
func (f MediaForm) Media() (types.MediaAsset, error) {
	f.Name = strings.TrimSpace(f.Name)
	if err := check(f); err != nil {
		return types.MediaAsset{}, err
	}
	return types.MediaAsset{Name: f.Name, DataURL: f.DataURL}, nil
}
