package tether

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Codec is the serialization contract for payloads carried in script
// elements, configuration files and inspection snapshots.
type Codec interface {
	// Marshal serializes v.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes bytes into a value.
	Unmarshal(data []byte, v any) error

	// ContentType returns the MIME type of the format.
	ContentType() string
}

// JSONCodec implements Codec using encoding/json.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) ContentType() string {
	return "application/json"
}

// YAMLCodec implements Codec using gopkg.in/yaml.v3.
type YAMLCodec struct{}

func (YAMLCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (YAMLCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

func (YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

// TOMLCodec implements Codec using github.com/BurntSushi/toml.
type TOMLCodec struct{}

func (TOMLCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (TOMLCodec) Unmarshal(data []byte, v any) error {
	return toml.Unmarshal(data, v)
}

func (TOMLCodec) ContentType() string {
	return "application/toml"
}

// MsgpackCodec implements Codec using github.com/vmihailenco/msgpack/v5.
// Payloads embedded in markup must be base64 encoded; see package expand.
type MsgpackCodec struct{}

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func (MsgpackCodec) ContentType() string {
	return "application/msgpack"
}

var (
	_ Codec = JSONCodec{}
	_ Codec = YAMLCodec{}
	_ Codec = TOMLCodec{}
	_ Codec = MsgpackCodec{}
)

// CodecFor resolves a codec from a MIME type, a short format name or a file
// name. Parameters after ';' are ignored.
func CodecFor(format string) (Codec, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if i := strings.IndexByte(f, ';'); i >= 0 {
		f = strings.TrimSpace(f[:i])
	}
	if c, ok := codecs[f]; ok {
		return c, nil
	}
	if c, ok := codecs[strings.TrimPrefix(filepath.Ext(f), ".")]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

var codecs = map[string]Codec{
	"":                      JSONCodec{},
	"json":                  JSONCodec{},
	"application/json":      JSONCodec{},
	"text/json":             JSONCodec{},
	"yaml":                  YAMLCodec{},
	"yml":                   YAMLCodec{},
	"application/x-yaml":    YAMLCodec{},
	"application/yaml":      YAMLCodec{},
	"text/yaml":             YAMLCodec{},
	"toml":                  TOMLCodec{},
	"application/toml":      TOMLCodec{},
	"msgpack":               MsgpackCodec{},
	"mpk":                   MsgpackCodec{},
	"application/msgpack":   MsgpackCodec{},
	"application/x-msgpack": MsgpackCodec{},
}
