package openai

import (
	"bufio"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// Handle is the Fiber handler for POST /openai/v1/chat/completions.
func (t *Translator) Handle(c *fiber.Ctx) error {
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

	pr, pw := io.Pipe()
	sink := &translatorFiberSink{c: c, pw: pw, headerReady: make(chan struct{})}

	go func() {
		t.Translate(c.Context(), body, header, query, c.IP(), sink)
		pw.Close()
	}()

	<-sink.headerReady

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		io.Copy(w, pr)
		w.Flush()
	}))

	return nil
}

type translatorFiberSink struct {
	c           *fiber.Ctx
	pw          *io.PipeWriter
	headerReady chan struct{}
	once        sync.Once
}

func (s *translatorFiberSink) WriteHeader(status int, header http.Header) {
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

func (s *translatorFiberSink) Write(p []byte) (int, error) {
	return s.pw.Write(p)
}
