package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

type levelStyle struct {
	tag   string
	color int
}

var levelStyles = map[string]levelStyle{
	zerolog.LevelTraceValue: {"TRC", 90},
	zerolog.LevelDebugValue: {"DBG", 36},
	zerolog.LevelInfoValue:  {"INF", 32},
	zerolog.LevelWarnValue:  {"WRN", 33},
	zerolog.LevelErrorValue: {"ERR", 31},
	zerolog.LevelFatalValue: {"FTL", 35},
}

// microFields are rendered as seconds on the console.
var microFields = []string{FieldTimeUs, FieldPositionUs}

func consoleWriter(cfg *Config, serviceName string, out io.Writer) zerolog.ConsoleWriter {
	prefix := ""
	if serviceName != "" && serviceName != "default" {
		prefix = paint(!cfg.NoColor, 34, "["+serviceName+"]")
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05.000",
		NoColor:    cfg.NoColor,
		FormatLevel: func(i interface{}) string {
			lvl, _ := i.(string)
			style, ok := levelStyles[lvl]
			if !ok {
				return prefix + "[" + strings.ToUpper(lvl) + "]"
			}
			return prefix + paint(!cfg.NoColor, style.color, "["+style.tag+"]")
		},
		FormatFieldName: func(i interface{}) string { return fmt.Sprintf("%s=", i) },
		FormatPrepare: func(evt map[string]interface{}) error {
			for _, name := range microFields {
				if v, ok := evt[name]; ok {
					evt[name] = seconds(v)
				}
			}
			return nil
		},
	}
}

// seconds formats a microsecond value as 1.500000s.
func seconds(v interface{}) interface{} {
	var us int64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Int64()
		if err != nil {
			return v
		}
		us = parsed
	case float64:
		us = int64(n)
	default:
		return v
	}
	return strconv.FormatFloat(float64(us)/1e6, 'f', 6, 64) + "s"
}

func paint(enabled bool, color int, s string) string {
	if !enabled {
		return s
	}
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", color, s)
}
