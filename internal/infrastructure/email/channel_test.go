package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"

	"PriceRadar/internal/config"
	"PriceRadar/internal/domain"
)

type fakePool struct {
	sent    []*email.Email
	timeout time.Duration
	err     error
}

func (p *fakePool) Send(e *email.Email, timeout time.Duration) error {
	p.sent = append(p.sent, e)
	p.timeout = timeout
	return p.err
}

var testConfig = config.EmailConfig{
	Server:      "smtp.example.com",
	From:        "alerts@example.com",
	To:          []string{"me@example.com"},
	SendTimeout: 5 * time.Second,
}

func TestDeliverBuildsMail(t *testing.T) {
	t.Parallel()

	pool := &fakePool{}
	ch := newChannel(testConfig, pool)

	err := ch.Deliver(context.Background(), domain.Message{Tag: "price-drop:0011", Subject: "Price drop: ps5", Body: "Great news!"})
	require.NoError(t, err)
	require.Len(t, pool.sent, 1)

	mail := pool.sent[0]
	require.Equal(t, "alerts@example.com", mail.From)
	require.Equal(t, []string{"me@example.com"}, mail.To)
	require.Equal(t, "Price drop: ps5", mail.Subject)
	require.Equal(t, "Great news!", string(mail.Text))
	require.Equal(t, "price-drop:0011", mail.Headers.Get("X-Entity-Ref-ID"))
	require.Equal(t, 5*time.Second, pool.timeout)
}

func TestDeliverHonoursContextDeadline(t *testing.T) {
	t.Parallel()

	pool := &fakePool{}
	ch := newChannel(testConfig, pool)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, ch.Deliver(ctx, domain.Message{Body: "x"}))
	require.LessOrEqual(t, pool.timeout, time.Second)

	done, stop := context.WithCancel(context.Background())
	stop()
	require.True(t, errors.Is(ch.Deliver(done, domain.Message{}), domain.ErrDeliveryFailure))
}

func TestDeliverWrapsSendErrors(t *testing.T) {
	t.Parallel()

	ch := newChannel(testConfig, &fakePool{err: errors.New("421 try later")})
	require.True(t, errors.Is(ch.Deliver(context.Background(), domain.Message{}), domain.ErrDeliveryFailure))
}

func TestNewChannelValidates(t *testing.T) {
	t.Parallel()

	_, err := NewChannel(config.EmailConfig{Server: "smtp.example.com"})
	require.Error(t, err)
}
