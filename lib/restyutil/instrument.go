package restyutil

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

type instrumentCtx struct {
	output    InstrumentOutput
	prefix    string
	idcounter *uint64
}

// InstrumentClient writes every completed exchange of client to output,
// `output` can be nil, if it is, then the function is a no-op
func InstrumentClient(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	i := instrumentCtx{
		output:    output,
		prefix:    time.Now().Format("20060102-150405"),
		idcounter: &idcounter,
	}
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentCtx) nextId() string {
	n := atomic.AddUint64(i.idcounter, 1)
	return fmt.Sprintf("%s-%03d.txt", i.prefix, n)
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	messageId := i.nextId()
	i.output.Write(messageId, formatHttpMessage(res))
	slog.DebugContext(
		res.Request.Context(), "request dumped",
		"method", res.Request.Method,
		"url", res.Request.URL,
		"status", res.StatusCode(),
		"message_id", messageId,
	)
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	messageId := i.nextId()
	i.output.Write(messageId, fmt.Sprintf(
		"---- REQUEST ----\n\n%s %s\n\n---- ERROR ----\n\n%s",
		req.Method, req.URL, err.Error(),
	))
	slog.DebugContext(
		req.Context(), "request failed",
		"method", req.Method,
		"url", req.URL,
		"err", err,
		"message_id", messageId,
	)
}
