package emailsvc

import (
	"context"
	"net/mail"
	"net/smtp"

	"github.com/pkg/errors"

	"github.com/aiworkshop/slides/core"
)

type SMTPService struct {
	addr       string
	auth       smtp.Auth
	from       mail.Address
	subjPrefix string
	base       core.ContextData
	sendMail   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error // mockable
}

var _ core.EmailService = (*SMTPService)(nil)

func NewSMTPService(conf *core.Config) *SMTPService {
	var auth smtp.Auth
	if conf.SMTP.Username != "" {
		auth = smtp.PlainAuth("", conf.SMTP.Username, conf.SMTP.Password, conf.SMTP.Host)
	}
	return &SMTPService{
		addr:       conf.SMTP.Address(),
		auth:       auth,
		from:       conf.DefaultFrom(),
		subjPrefix: subjectPrefix(conf),
		base:       contextData(conf),
		sendMail:   smtp.SendMail,
	}
}

func (svc *SMTPService) SendMessages(ctx context.Context, messages ...*core.EmailMessage) error {
	return sendAll(ctx, svc.base, messages, svc.send)
}

func (svc *SMTPService) send(ctx context.Context, msg core.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := buildMIME(svc.from, svc.subjPrefix+msg.Subject, msg)
	if err != nil {
		return err
	}

	rcpts := make([]string, 0, len(msg.To)+len(msg.Cc)+len(msg.Bcc))
	for _, list := range [][]mail.Address{msg.To, msg.Cc, msg.Bcc} {
		for _, a := range list {
			rcpts = append(rcpts, a.Address)
		}
	}
	if err = svc.sendMail(svc.addr, svc.auth, svc.from.Address, rcpts, body); err != nil {
		return errors.Wrap(err, "sending email over smtp")
	}
	return nil
}
