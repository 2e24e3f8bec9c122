package email

import (
	"fmt"
	"io"
	"mime/quotedprintable"
	"strings"
)

type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

func (e *Message) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\nContent-Transfer-Encoding: quoted-printable\r\n\r\n",
		e.From, strings.Join(e.To, ", "), e.Subject)
	if err != nil {
		return err
	}
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(e.Body)); err != nil {
		return err
	}
	return qp.Close()
}
