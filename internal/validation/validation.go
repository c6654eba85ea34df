// Package validation checks entity input before it reaches the database.
// Every check reports field-level messages collected into an apperr
// validation error.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"nuclear/internal/apperr"
	"nuclear/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a single invalid field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "has an invalid format"}
	}
	return nil
}

// ValidateName checks if a display name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "name", Message: "must be at least 2 characters"}
	}
	return nil
}

// Errors collects field messages. The first message per field wins.
type Errors map[string]string

func (e Errors) Add(field, message string) {
	if _, ok := e[field]; !ok {
		e[field] = message
	}
}

func (e Errors) addErr(err error) {
	if ve, ok := err.(ValidationError); ok {
		e.Add(ve.Field, ve.Message)
	}
}

// Err returns nil when no field failed
func (e Errors) Err(entity string) error {
	if len(e) == 0 {
		return nil
	}
	return apperr.Validation(entity, map[string]string(e))
}

func (e Errors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, "is required")
	}
}

func (e Errors) notBlank(field string, value *string) {
	if value != nil && strings.TrimSpace(*value) == "" {
		e.Add(field, "must not be empty")
	}
}

func (e Errors) nonNegative(field string, value *int) {
	if value != nil && *value < 0 {
		e.Add(field, "must not be negative")
	}
}

func (e Errors) positive(field string, value *int) {
	if value != nil && *value <= 0 {
		e.Add(field, "must be greater than 0")
	}
}

func (e Errors) percentage(field string, value *int) {
	if value != nil && (*value < 0 || *value > 100) {
		e.Add(field, "must be between 0 and 100")
	}
}

func (e Errors) difficulty(value *string) {
	if value == nil {
		return
	}
	if _, ok := models.ParseDifficulty(*value); !ok {
		e.Add("difficulty", "must be one of EASY, MEDIUM, HARD")
	}
}

func (e Errors) role(value string) {
	if _, ok := models.ParseRole(value); !ok {
		e.Add("mode", "must be one of STUDENT, TEACHER, ADMIN")
	}
}

func (e Errors) sentence(value string) {
	if strings.TrimSpace(value) == "" {
		e.Add("sentence", "is required")
		return
	}
	if !models.HasBlank(value) {
		e.Add("sentence", fmt.Sprintf("must contain the blank marker %q", models.BlankMarker))
	}
}

func CreateUser(in models.CreateUserInput) error {
	errs := Errors{}
	errs.addErr(ValidateEmail(in.Email))
	if in.Name != nil {
		errs.addErr(ValidateName(*in.Name))
	}
	errs.role(in.Role)
	return errs.Err("user")
}

func UpdateUser(in models.UpdateUserInput) error {
	errs := Errors{}
	if in.Email != nil {
		errs.addErr(ValidateEmail(*in.Email))
	}
	if in.Name != nil {
		errs.addErr(ValidateName(*in.Name))
	}
	if in.Role != nil {
		if strings.TrimSpace(*in.Role) == "" {
			errs.Add("mode", "must not be empty")
		} else {
			errs.role(*in.Role)
		}
	}
	return errs.Err("user")
}

func CreateBlock(in models.CreateBlockInput) error {
	errs := Errors{}
	errs.required("title", in.Title)
	errs.required("content", in.Content)
	errs.required("authorId", in.AuthorID)
	return errs.Err("block")
}

func UpdateBlock(in models.UpdateBlockInput) error {
	errs := Errors{}
	errs.notBlank("title", in.Title)
	errs.notBlank("content", in.Content)
	errs.notBlank("authorId", in.AuthorID)
	return errs.Err("block")
}

func CreateFolder(in models.CreateFolderInput) error {
	errs := Errors{}
	errs.required("name", in.Name)
	errs.required("authorId", in.AuthorID)
	return errs.Err("folder")
}

func UpdateFolder(in models.UpdateFolderInput) error {
	errs := Errors{}
	errs.notBlank("name", in.Name)
	return errs.Err("folder")
}

func CreateQuiz(in models.CreateQuizInput) error {
	errs := Errors{}
	errs.required("title", in.Title)
	errs.positive("timeLimit", in.TimeLimit)
	errs.percentage("passingScore", in.PassingScore)
	return errs.Err("quiz")
}

func UpdateQuiz(in models.UpdateQuizInput) error {
	errs := Errors{}
	errs.notBlank("title", in.Title)
	errs.positive("timeLimit", in.TimeLimit)
	errs.percentage("passingScore", in.PassingScore)
	return errs.Err("quiz")
}

func CreateQuestion(in models.CreateQuestionInput) error {
	errs := Errors{}
	errs.required("text", in.Text)
	errs.nonNegative("points", in.Points)
	errs.difficulty(in.Difficulty)
	return errs.Err("question")
}

func UpdateQuestion(in models.UpdateQuestionInput) error {
	errs := Errors{}
	errs.notBlank("text", in.Text)
	errs.nonNegative("points", in.Points)
	errs.difficulty(in.Difficulty)
	return errs.Err("question")
}

func CreateTopic(in models.CreateTopicInput) error {
	errs := Errors{}
	errs.required("name", in.Name)
	return errs.Err("topic")
}

func UpdateTopic(in models.UpdateTopicInput) error {
	errs := Errors{}
	errs.notBlank("name", in.Name)
	return errs.Err("topic")
}

func CreateFillInTheBlank(in models.CreateFillInTheBlankInput) error {
	errs := Errors{}
	errs.sentence(in.Sentence)
	errs.required("answer", in.Answer)
	errs.difficulty(in.Difficulty)
	return errs.Err("fillInTheBlank")
}

func UpdateFillInTheBlank(in models.UpdateFillInTheBlankInput) error {
	errs := Errors{}
	if in.Sentence != nil {
		errs.sentence(*in.Sentence)
	}
	errs.notBlank("answer", in.Answer)
	errs.difficulty(in.Difficulty)
	return errs.Err("fillInTheBlank")
}

// CreatePointsUpdate rejects negative points. Every ledger write goes
// through this check or UpdatePointsUpdate.
func CreatePointsUpdate(in models.CreatePointsUpdateInput) error {
	errs := Errors{}
	errs.nonNegative("points", &in.Points)
	return errs.Err("pointsUpdate")
}

func UpdatePointsUpdate(in models.UpdatePointsUpdateInput) error {
	errs := Errors{}
	errs.nonNegative("points", in.Points)
	return errs.Err("pointsUpdate")
}
