package jsonx_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kotae/pkg/utils/jsonx"
)

type payload struct {
	Intent     string   `json:"intent"`
	Keywords   []string `json:"keywords"`
	Confidence float64  `json:"confidence"`
}

func TestDecode(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		var out payload
		r := jsonx.Decode(`{"intent":"define","keywords":["quantum"],"confidence":85}`, &out)
		gt.V(t, r.OK).Equal(true)
		gt.V(t, out.Intent).Equal("define")
		gt.A(t, out.Keywords).Length(1)
		gt.V(t, out.Confidence).Equal(85)
	})

	t.Run("json fenced block", func(t *testing.T) {
		raw := "Here is the analysis:\n```json\n{\"intent\":\"compare\",\"confidence\":70}\n```\nDone."
		var out payload
		r := jsonx.Decode(raw, &out)
		gt.V(t, r.OK).Equal(true)
		gt.V(t, out.Intent).Equal("compare")
	})

	t.Run("bare fenced block", func(t *testing.T) {
		raw := "```\n{\"intent\":\"explain\"}\n```"
		var out payload
		r := jsonx.Decode(raw, &out)
		gt.V(t, r.OK).Equal(true)
		gt.V(t, out.Intent).Equal("explain")
	})

	t.Run("unterminated fence", func(t *testing.T) {
		raw := "```json\n{\"intent\":\"lookup\"}"
		var out payload
		r := jsonx.Decode(raw, &out)
		gt.V(t, r.OK).Equal(true)
		gt.V(t, out.Intent).Equal("lookup")
	})

	t.Run("malformed payload keeps raw text", func(t *testing.T) {
		raw := "I cannot answer that as JSON."
		var out payload
		r := jsonx.Decode(raw, &out)
		gt.V(t, r.OK).Equal(false)
		gt.V(t, r.Raw).Equal(raw)
		gt.V(t, r.Err()).NotNil()
	})
}

func TestExtract(t *testing.T) {
	gt.V(t, jsonx.Extract("  {\"a\":1}  ")).Equal(`{"a":1}`)
	gt.V(t, jsonx.Extract("```json\n{\"a\":1}\n```")).Equal(`{"a":1}`)
	gt.V(t, jsonx.Extract("```\n{\"a\":1}\n```")).Equal(`{"a":1}`)
	gt.V(t, jsonx.Extract("no json here")).Equal("no json here")
}
