// Package smssvc implements core.SMSService.
package smssvc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/aryaedu/tutor/core"
)

const serviceName = "fast2sms"

type fast2SMSService struct {
	conf core.SMSConfig
}

var _ core.SMSService = (*fast2SMSService)(nil)

// NewFast2SMSService sends through the Fast2SMS bulk API (quick route).
func NewFast2SMSService(conf core.SMSConfig) *fast2SMSService {
	return &fast2SMSService{conf: conf}
}

type fast2SMSPayload struct {
	Route    string `json:"route"`
	Message  string `json:"message"`
	Language string `json:"language"`
	Flash    int    `json:"flash"`
	Numbers  string `json:"numbers"`
}

type fast2SMSResponse struct {
	Return  bool            `json:"return"`
	Message json.RawMessage `json:"message"`
}

func (svc fast2SMSService) Send(ctx context.Context, msg core.SMSMessage) error {
	if svc.conf.APIKey == "" {
		return core.NewExternalServiceError(serviceName, errors.New("API key is not configured"))
	}

	body, err := json.Marshal(fast2SMSPayload{
		Route:    svc.conf.Route,
		Message:  msg.Body,
		Language: "english",
		Flash:    0,
		Numbers:  msg.To,
	})
	if err != nil {
		return errors.Wrap(err, "encoding sms payload")
	}

	res, err := rest.SendWithContext(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: svc.conf.Host + svc.conf.Endpoint,
		Headers: map[string]string{
			"authorization": svc.conf.APIKey,
			"Content-Type":  "application/json",
			"Cache-Control": "no-cache",
		},
		Body: body,
	})
	if err != nil {
		return core.NewExternalServiceError(serviceName, err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return core.NewExternalServiceError(serviceName, fmt.Errorf("status %d: %s", res.StatusCode, res.Body))
	}

	var out fast2SMSResponse
	if err = json.Unmarshal([]byte(res.Body), &out); err != nil {
		return core.NewExternalServiceError(serviceName, errors.Wrap(err, "decoding response"))
	}
	if !out.Return {
		return core.NewExternalServiceError(serviceName, fmt.Errorf("rejected: %s", out.Message))
	}
	return nil
}

type consoleService struct {
	out io.Writer
}

var _ core.SMSService = (*consoleService)(nil)

// NewConsoleService prints messages to out. Used when no gateway key is configured.
func NewConsoleService(out io.Writer) *consoleService {
	return &consoleService{out: out}
}

func (svc consoleService) Send(_ context.Context, msg core.SMSMessage) error {
	_, err := fmt.Fprintf(svc.out, "SMS to %s: %s\n", msg.To, msg.Body)
	return err
}

// ConsoleServiceMock records every message instead of printing it.
type ConsoleServiceMock struct {
	mu   sync.Mutex
	sent []core.SMSMessage
	Err  error // returned by Send when set
}

var _ core.SMSService = (*ConsoleServiceMock)(nil)

func NewConsoleServiceMock() *ConsoleServiceMock {
	return &ConsoleServiceMock{}
}

func (svc *ConsoleServiceMock) Send(_ context.Context, msg core.SMSMessage) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.Err != nil {
		return svc.Err
	}
	svc.sent = append(svc.sent, msg)
	return nil
}

func (svc *ConsoleServiceMock) SentMessages() []core.SMSMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.SMSMessage(nil), svc.sent...)
}
