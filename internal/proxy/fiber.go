package proxy

import (
	"bufio"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// Handle is the Fiber handler for /anthropic/** and the pass-through
// catch-all route. It runs Serve concurrently with streaming the response
// back over the live connection via SetBodyStreamWriter, so the first
// upstream byte reaches the client without waiting for the full body.
func (p *Proxy) Handle(c *fiber.Ctx) error {
	req := requestFromFiber(c)

	pr, pw := io.Pipe()
	sink := &fiberSink{c: c, pw: pw, headerReady: make(chan struct{})}

	go func() {
		p.Serve(c.Context(), req, sink)
		pw.Close()
	}()

	<-sink.headerReady

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		io.Copy(w, pr)
		w.Flush()
	}))

	return nil
}

func requestFromFiber(c *fiber.Ctx) *Request {
	header := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})

	query := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		query.Add(string(key), string(value))
	})

	body := make([]byte, len(c.Body()))
	copy(body, c.Body())

	return &Request{
		Method:    c.Method(),
		Path:      c.Path(),
		Header:    header,
		Query:     query,
		Body:      body,
		ClientIP:  c.IP(),
		UserAgent: c.Get("User-Agent"),
	}
}

// fiberSink adapts the Sink contract to a Fiber context: WriteHeader sets
// status and response headers directly (Fiber needs these before the
// stream writer starts), and Write feeds the body through a pipe so Serve
// can run concurrently with the streaming writer goroutine.
type fiberSink struct {
	c           *fiber.Ctx
	pw          *io.PipeWriter
	headerReady chan struct{}
	once        sync.Once
}

func (s *fiberSink) WriteHeader(status int, header http.Header) {
	s.once.Do(func() {
		s.c.Status(status)
		for k, vv := range header {
			for _, v := range vv {
				s.c.Response().Header.Add(k, v)
			}
		}
		close(s.headerReady)
	})
}

func (s *fiberSink) Write(p []byte) (int, error) {
	return s.pw.Write(p)
}
