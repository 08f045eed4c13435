// Package completion sends the course completion email.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/aiworkshop/slides/core"
)

const templateName = "course_completed"

var nowFunc = time.Now // mockable

// Request is the body of a completion email request.
type Request struct {
	Name    string `json:"name" validate:"required,notblank,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Course  string `json:"course" validate:"max=200"`
	Score   Score  `json:"score" validate:"max=50"`
	Message string `json:"message" validate:"max=5000"`
}

func (r *Request) Validate(validate *validator.Validate) error {
	r.Name = core.CleanString(r.Name)
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Course = core.CleanString(r.Course)
	r.Score = Score(core.CleanString(string(r.Score)))
	return validate.Struct(r)
}

// Score accepts either a JSON string or a JSON number.
type Score string

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Score(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrap(err, "score must be a string or a number")
	}
	*s = Score(n.String())
	return nil
}

type templateData struct {
	Name        string
	Course      string
	Score       string
	Message     string
	CompletedAt string
}

type Service struct {
	mailSvc       core.EmailService
	defaultCourse string
	handout       string
	logger        core.Logger
}

func NewService(mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		mailSvc:       mailSvc,
		defaultCourse: conf.AppName,
		handout:       conf.Path(conf.Mail.Handout),
		logger:        logger,
	}
}

// Send emails a completion certificate to the learner.
func (svc *Service) Send(ctx context.Context, req Request) error {
	course := req.Course
	if course == "" {
		course = svc.defaultCourse
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: req.Name, Address: req.Email}},
		Subject:      "Congratulations on completing " + course,
		TemplateName: templateName,
		TemplateData: templateData{
			Name:        req.Name,
			Course:      course,
			Score:       string(req.Score),
			Message:     req.Message,
			CompletedAt: nowFunc().UTC().Format("January 2, 2006"),
		},
	}
	// a missing handout does not block the email
	if svc.handout != "" {
		if err := msg.AttachFile(svc.handout); err != nil {
			svc.logger.Warn("attaching completion handout", err, map[string]interface{}{"path": svc.handout})
		}
	}
	if err := svc.mailSvc.SendMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "sending completion email")
	}
	svc.logger.Info("completion email sent", map[string]interface{}{"course": course})
	return nil
}
