package delivery

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoorder/autoorder/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMailerWithoutAPIKey(t *testing.T) {
	m := NewMailer("", "", testLogger())

	// Unconfigured mail is a no-op, not an error.
	err := m.SendOrder(context.Background(), Order{
		To:          "supplier@example.com",
		DisplayName: "발주서_20240315.xlsx",
		Workbook:    []byte("data"),
		RowCount:    3,
	})
	assert.NoError(t, err)
}

func TestOrderEmailHTML(t *testing.T) {
	t.Run("supplier name and row count", func(t *testing.T) {
		body := orderEmailHTML(Order{Supplier: "한빛상사", RowCount: 12})
		assert.Contains(t, body, "한빛상사")
		assert.Contains(t, body, "12건")
	})

	t.Run("missing supplier falls back to a generic greeting", func(t *testing.T) {
		body := orderEmailHTML(Order{RowCount: 1})
		assert.Contains(t, body, "담당자")
	})

	t.Run("supplier name is escaped", func(t *testing.T) {
		body := orderEmailHTML(Order{Supplier: "<script>alert(1)</script>"})
		assert.NotContains(t, body, "<script>")
	})
}

func TestSchedulerLifecycle(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	s := NewScheduler(store, NewMailer("", "", testLogger()), testLogger())
	require.NoError(t, s.Start())

	require.NoError(t, s.AddRecurringSend("30 9 * * 1", func(ctx context.Context) (Order, error) {
		return Order{To: "supplier@example.com"}, nil
	}))

	stopped := s.Stop()
	<-stopped.Done()
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(nil, NewMailer("", "", testLogger()), testLogger())
	err := s.AddRecurringSend("not a cron expression", func(ctx context.Context) (Order, error) {
		return Order{}, nil
	})
	require.Error(t, err)
}
