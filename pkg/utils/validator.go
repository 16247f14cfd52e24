package utils

import (
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	err := validate.RegisterValidation("card_type", validateCardType)
	if err != nil {
		return
	}
	err = validate.RegisterValidation("issue_status", validateIssueStatus)
	if err != nil {
		return
	}
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateCardType(fl validator.FieldLevel) bool {
	cardType := fl.Field().String()
	validTypes := []string{"authorization_1", "installation", "authorization_2", "clock", "room", "sequence"}

	for _, valid := range validTypes {
		if cardType == valid {
			return true
		}
	}
	return false
}

func validateIssueStatus(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	validStatuses := []string{"pending", "queued", "in_progress", "done", "failed"}

	for _, valid := range validStatuses {
		if status == valid {
			return true
		}
	}
	return false
}
