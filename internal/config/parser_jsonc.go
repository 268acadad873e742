package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
)

type jsoncConfig struct {
	Logging *jsoncLogging `json:"logging"`
	Lock    *jsoncLock    `json:"lock"`
	Metrics *jsoncMetrics `json:"metrics"`

	// Sections owned by the accessory and NFC components of the same
	// configuration file. Accepted so one file can serve all of them.
	HAP     json.RawMessage `json:"hap"`
	NFC     json.RawMessage `json:"nfc"`
	HomeKey json.RawMessage `json:"homekey"`
}

type jsoncLogging struct {
	Level  *jsoncLevel `json:"level"`
	Format *string     `json:"format"`
	File   *string     `json:"file"`
}

type jsoncLock struct {
	SocketFile    *string `json:"socketfile"`
	Default       *string `json:"default"`
	SyncOnConnect *bool   `json:"sync_on_connect"`
}

type jsoncMetrics struct {
	Listen *string `json:"listen"`
}

// jsoncLevel accepts a level name or a numeric level (10 debug, 20 info,
// 30 warning, 40 error, 50 critical).
type jsoncLevel string

func (l *jsoncLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*l = jsoncLevel(name)
		return nil
	}

	var numeric int
	if err := json.Unmarshal(data, &numeric); err == nil {
		switch {
		case numeric <= 10:
			*l = "debug"
		case numeric <= 20:
			*l = "info"
		case numeric <= 30:
			*l = "warn"
		default:
			*l = "error"
		}
		return nil
	}

	return fmt.Errorf("expected level name or numeric level")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized := string(jsonc.ToJSON([]byte(content)))

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings := payload.applyTo(&cfg)

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) []Warning {
	warnings := make([]Warning, 0)

	if payload.Logging != nil {
		if payload.Logging.Level != nil {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(string(*payload.Logging.Level)))
		}
		if payload.Logging.Format != nil {
			cfg.Logging.Format = strings.ToLower(strings.TrimSpace(*payload.Logging.Format))
		}
		if payload.Logging.File != nil {
			cfg.Logging.File = strings.TrimSpace(*payload.Logging.File)
		}
	}

	if payload.Lock != nil {
		if payload.Lock.SocketFile != nil {
			cfg.Lock.SocketFile = strings.TrimSpace(*payload.Lock.SocketFile)
		}
		if payload.Lock.Default != nil {
			cfg.Lock.Default = strings.ToLower(strings.TrimSpace(*payload.Lock.Default))
		}
		if payload.Lock.SyncOnConnect != nil {
			cfg.Lock.SyncOnConnect = *payload.Lock.SyncOnConnect
		}
	}

	if payload.Metrics != nil && payload.Metrics.Listen != nil {
		cfg.Metrics.Listen = strings.TrimSpace(*payload.Metrics.Listen)
	}

	ignored := make([]string, 0, 3)
	for name, raw := range map[string]json.RawMessage{
		"hap":     payload.HAP,
		"nfc":     payload.NFC,
		"homekey": payload.HomeKey,
	} {
		if len(bytes.TrimSpace(raw)) > 0 {
			ignored = append(ignored, name)
		}
	}
	sort.Strings(ignored)
	for _, name := range ignored {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("section %q is not used by the lock bridge; ignored", name)})
	}

	return warnings
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

// offsetToLineCol maps a decoder byte offset to a 1-based position. jsonc.ToJSON
// preserves input length, so positions match the file on disk.
func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
