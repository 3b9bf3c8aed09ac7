package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
)

// multipartMemory — сколько multipart-тела держать в памяти; остальное уходит во временные файлы.
const multipartMemory = 8 << 20

// parseMultipart ограничивает тело и разбирает форму.
// Вызывающий обязан вызвать возвращённую функцию очистки.
func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) (func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return func() {}, err
	}

	return func() { _ = r.MultipartForm.RemoveAll() }, nil
}

// formFile возвращает файл поля или nil, если поле не передано.
func formFile(r *http.Request, field string) (*storage.MediaFile, func(), error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, err
	}

	ct, err := contentType(f, hdr)
	if err != nil {
		_ = f.Close()
		return nil, func() {}, err
	}

	return &storage.MediaFile{
		Name:        hdr.Filename,
		ContentType: ct,
		Size:        hdr.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

// contentType берёт тип из части формы, а если клиент его не указал — определяет по содержимому.
func contentType(f multipart.File, hdr *multipart.FileHeader) (string, error) {
	if ct := hdr.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct, nil
	}

	var head [512]byte
	n, err := io.ReadFull(f, head[:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	return http.DetectContentType(head[:n]), nil
}
