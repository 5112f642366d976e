package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerNotifierWritesRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	n := NewLoggerNotifier(logger)

	err := n.Send(context.Background(), Message{Kind: KindDeposit, Destination: "w-1", Body: "deposit 10.00"})
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "notification", record["msg"])
	assert.Equal(t, KindDeposit, record["kind"])
	assert.Equal(t, "w-1", record["destination"])
}

func TestLoggerNotifierNilSafe(t *testing.T) {
	var n *LoggerNotifier
	assert.NoError(t, n.Send(context.Background(), Message{Kind: KindWithdrawal}))
	assert.NoError(t, NewLoggerNotifier(nil).Send(context.Background(), Message{}))
}
