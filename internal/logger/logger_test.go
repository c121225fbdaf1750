package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture sends log output to a fresh buffer at lvl and restores stdout
// text logging at INFO when the test ends.
func capture(t *testing.T, lvl, format string) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	InitWithWriter(buf, lvl, format, false)
	t.Cleanup(func() {
		InitWithWriter(os.Stdout, "INFO", FormatText, false)
	})
	return buf
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		present []string
		absent  []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := capture(t, tt.level, FormatText)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.present {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{" Warn ", slog.LevelWarn},
		{"ERROR", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseLevel("LOUD")
	assert.ErrorContains(t, err, "LOUD")
}

func TestSetLevel(t *testing.T) {
	_ = capture(t, "INFO", FormatText)

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, "DEBUG", Level())
	assert.True(t, Enabled(slog.LevelDebug))

	require.NoError(t, SetLevel("WARN"))
	assert.Error(t, SetLevel("LOUD"))
	assert.Equal(t, "WARN", Level(), "invalid level leaves the old one")
	assert.False(t, Enabled(slog.LevelInfo))
	assert.True(t, Enabled(slog.LevelError))
}

func TestTextHandler(t *testing.T) {
	t.Run("FormatsLevelAndFields", func(t *testing.T) {
		buf := capture(t, "INFO", FormatText)
		Info("call done", KeyProgram, "tst_prog_1", KeyProcNo, 2)

		out := buf.String()
		assert.True(t, strings.HasPrefix(out, "["))
		assert.Contains(t, out, "[INFO] call done")
		assert.Contains(t, out, "program=tst_prog_1")
		assert.Contains(t, out, "procno=2")
	})

	t.Run("QuotesValues", func(t *testing.T) {
		buf := capture(t, "INFO", FormatText)
		Info("msg", KeyError, "connection refused by peer", "empty", "", "expr", "a=b")

		out := buf.String()
		assert.Contains(t, out, `error="connection refused by peer"`)
		assert.Contains(t, out, `empty=""`)
		assert.Contains(t, out, `expr="a=b"`)
	})

	t.Run("WireStaysOnOneLine", func(t *testing.T) {
		buf := capture(t, "DEBUG", FormatText)
		Debug("Call arguments", Wire([]byte{0, 0, 0, 1, 0, 0, 0, 0x28, 0xff}))

		out := buf.String()
		assert.Contains(t, out, `wire="00000001 00000028 ff"`)
		assert.Equal(t, 1, strings.Count(out, "\n"))
	})

	t.Run("FlattensGroups", func(t *testing.T) {
		var buf bytes.Buffer
		l := slog.New(NewColorTextHandler(&buf, nil, false)).WithGroup("rpc")
		l.Info("reply", slog.Group("hdr", slog.Int("xid", 7)))

		assert.Contains(t, buf.String(), "rpc.hdr.xid=7")
	})

	t.Run("WithAttrsPrefixesEveryLine", func(t *testing.T) {
		var buf bytes.Buffer
		l := slog.New(NewColorTextHandler(&buf, nil, false)).With(KeyTarget, "h:1")
		l.Info("one")
		l.Info("two", "n", 2)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "one target=h:1")
		assert.Contains(t, lines[1], "two target=h:1 n=2")
	})

	t.Run("ColorWrapsLevelAndKeys", func(t *testing.T) {
		var buf bytes.Buffer
		slog.New(NewColorTextHandler(&buf, nil, true)).Warn("careful", "k", "v")

		out := buf.String()
		assert.Contains(t, out, colorYellow+"WARN"+colorReset)
		assert.Contains(t, out, colorCyan+"k"+colorReset+"=v")
	})
}

func TestJSONFormat(t *testing.T) {
	buf := capture(t, "INFO", FormatJSON)
	Info("json message", KeyTarget, "127.0.0.1:4000")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "json message", entry["msg"])
	assert.Equal(t, "127.0.0.1:4000", entry[KeyTarget])
	assert.Contains(t, entry, "time")
}

func TestContextLogging(t *testing.T) {
	t.Run("LogContextInjectsFields", func(t *testing.T) {
		buf := capture(t, "DEBUG", FormatText)

		lc := NewLogContext("10.0.0.5").
			WithRequest("req-1", "xdr.xlate").
			WithCall("127.0.0.1:4000", "tst_prog_1", 2)
		ctx := WithContext(context.Background(), lc)

		InfoCtx(ctx, "translated", "outcome", "ok")

		out := buf.String()
		assert.Contains(t, out, "request_id=req-1")
		assert.Contains(t, out, "method=xdr.xlate")
		assert.Contains(t, out, "client_ip=10.0.0.5")
		assert.Contains(t, out, "target=127.0.0.1:4000")
		assert.Contains(t, out, "program=tst_prog_1")
		assert.Less(t, strings.Index(out, "request_id="), strings.Index(out, "outcome=ok"),
			"context fields lead the line")
	})

	t.Run("ContextWithoutLogContextHandled", func(t *testing.T) {
		buf := capture(t, "INFO", FormatText)
		require.NotPanics(t, func() {
			InfoCtx(context.Background(), "plain")
		})
		assert.Contains(t, buf.String(), "plain")
	})

	t.Run("DisabledLevelSkipsWork", func(t *testing.T) {
		buf := capture(t, "ERROR", FormatText)
		DebugCtx(WithContext(context.Background(), NewLogContext("1.2.3.4")), "quiet")
		assert.Empty(t, buf.String())
	})
}

func TestLogContext(t *testing.T) {
	t.Run("CloneIsIndependent", func(t *testing.T) {
		lc := NewLogContext("1.2.3.4")
		clone := lc.WithCall("h:1", "p", 1)

		assert.Empty(t, lc.Target)
		assert.Equal(t, "h:1", clone.Target)
		assert.Equal(t, lc.ClientIP, clone.ClientIP)
	})

	t.Run("CloneNil", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Nil(t, lc.WithTrace("t", "s"))
		assert.Nil(t, FromContext(context.Background()))
	})
}

func TestFieldHelpers(t *testing.T) {
	t.Run("WireGroupsXDRUnits", func(t *testing.T) {
		tests := []struct {
			in   []byte
			want string
		}{
			{nil, ""},
			{[]byte{0x00, 0x00, 0x00, 0x28}, "00000028"},
			{[]byte{0, 0, 0, 1, 0x66, 0x6f}, "00000001 666f"},
		}
		for _, tt := range tests {
			attr := Wire(tt.in)
			assert.Equal(t, KeyWire, attr.Key)
			assert.Equal(t, tt.want, attr.Value.String())
		}
	})

	t.Run("ErrHandlesNil", func(t *testing.T) {
		assert.Equal(t, "", Err(nil).Key)
	})

	t.Run("ErrFormatsError", func(t *testing.T) {
		attr := Err(errors.New("boom"))
		assert.Equal(t, KeyError, attr.Key)
		assert.Equal(t, "boom", attr.Value.String())
	})
}

func TestConcurrentLogging(t *testing.T) {
	_ = capture(t, "INFO", FormatText)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if j%10 == 0 {
					_ = SetLevel([]string{"DEBUG", "INFO"}[i%2])
				}
				Info("concurrent", "worker", i, "iter", j)
			}
		}(i)
	}
	wg.Wait()
}

func TestInit(t *testing.T) {
	t.Run("RejectsInvalidLevel", func(t *testing.T) {
		_ = capture(t, "INFO", FormatText)
		assert.Error(t, Init(Config{Level: "LOUD"}))
		assert.Equal(t, "INFO", Level())
	})

	t.Run("RejectsInvalidFormat", func(t *testing.T) {
		_ = capture(t, "INFO", FormatText)
		assert.Error(t, Init(Config{Format: "xml"}))
	})

	t.Run("FileOutput", func(t *testing.T) {
		_ = capture(t, "INFO", FormatText)

		path := filepath.Join(t.TempDir(), "proxy.log")
		require.NoError(t, Init(Config{Level: "WARN", Format: "json", Output: path}))
		Info("hidden")
		Warn("shown", KeyProgram, "tst_prog_1")
		require.NoError(t, Init(Config{Output: "stdout"}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "hidden")
		assert.Contains(t, string(data), `"msg":"shown"`)
		assert.Contains(t, string(data), `"program":"tst_prog_1"`)
	})

	t.Run("BadFilePath", func(t *testing.T) {
		_ = capture(t, "INFO", FormatText)
		err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
		assert.ErrorContains(t, err, "failed to open log file")
	})
}
