package emailsvc

import (
	"context"
	"io"
	"net/mail"
	"os"
	"sync"

	"github.com/aiworkshop/slides/core"
)

// ConsoleService writes emails to an io.Writer instead of sending them.
type ConsoleService struct {
	from       mail.Address
	subjPrefix string
	base       core.ContextData
	out        io.Writer
	mu         sync.Mutex // guards out
}

var _ core.EmailService = (*ConsoleService)(nil)

func NewConsoleService(conf *core.Config) *ConsoleService {
	return newConsoleService(conf, os.Stdout)
}

func newConsoleService(conf *core.Config, out io.Writer) *ConsoleService {
	return &ConsoleService{
		from:       conf.DefaultFrom(),
		subjPrefix: subjectPrefix(conf),
		base:       contextData(conf),
		out:        out,
	}
}

func (svc *ConsoleService) SendMessages(ctx context.Context, messages ...*core.EmailMessage) error {
	return sendAll(ctx, svc.base, messages, svc.send)
}

func (svc *ConsoleService) send(_ context.Context, msg core.EmailMessage) error {
	body, err := buildMIME(svc.from, svc.subjPrefix+msg.Subject, msg)
	if err != nil {
		return err
	}
	if svc.out == nil {
		return nil
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	_, err = svc.out.Write(append(body, '\n'))
	return err
}

// ConsoleServiceMock renders messages without output and records them.
type ConsoleServiceMock struct {
	ConsoleService
	mu   sync.Mutex
	sent []core.EmailMessage
	err  error
}

func NewConsoleServiceMock(conf *core.Config) *ConsoleServiceMock {
	return &ConsoleServiceMock{
		ConsoleService: ConsoleService{
			from:       conf.DefaultFrom(),
			subjPrefix: subjectPrefix(conf),
			base:       contextData(conf),
		},
	}
}

// FailWith makes every following SendMessages call return err.
func (svc *ConsoleServiceMock) FailWith(err error) {
	svc.mu.Lock()
	svc.err = err
	svc.mu.Unlock()
}

func (svc *ConsoleServiceMock) SendMessages(ctx context.Context, messages ...*core.EmailMessage) error {
	svc.mu.Lock()
	err := svc.err
	svc.mu.Unlock()
	if err != nil {
		return err
	}
	return sendAll(ctx, svc.base, messages, func(ctx context.Context, msg core.EmailMessage) error {
		if err := svc.send(ctx, msg); err != nil {
			return err
		}
		svc.mu.Lock()
		svc.sent = append(svc.sent, msg)
		svc.mu.Unlock()
		return nil
	})
}

func (svc *ConsoleServiceMock) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}
