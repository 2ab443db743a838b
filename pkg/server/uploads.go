// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package server

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/madspark-labs/madspark/pkg/types"
)

// Upload size caps by kind.
const (
	MaxUploadBytes = 20 << 20
	MaxImageBytes  = 8 << 20
	MaxPDFBytes    = 40 << 20
)

// uploadStore writes validated attachments under UUID names in a temp
// directory that is removed on both success and failure paths.
type uploadStore struct {
	dir    string
	logger *zap.Logger
}

func newUploadStore(logger *zap.Logger) (*uploadStore, error) {
	dir, err := os.MkdirTemp("", "madspark-uploads-*")
	if err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &uploadStore{dir: dir, logger: logger}, nil
}

// Save validates one multipart file by magic bytes and size, then stores
// it under a UUID filename. The client-supplied filename is never used
// on disk.
func (u *uploadStore) Save(fh *multipart.FileHeader) (types.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return types.Attachment{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, 16)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return types.Attachment{}, fmt.Errorf("read upload header: %w", err)
	}
	head = head[:n]

	mediaType, ok := sniffMediaType(head)
	if !ok {
		return types.Attachment{}, fmt.Errorf("unsupported file type for %q", fh.Filename)
	}
	limit := capFor(mediaType)
	if fh.Size > limit {
		return types.Attachment{}, fmt.Errorf("%q exceeds %d byte limit for %s", fh.Filename, limit, mediaType)
	}

	name := uuid.NewString() + extFor(mediaType)
	path := filepath.Join(u.dir, name)
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return types.Attachment{}, fmt.Errorf("create upload file: %w", err)
	}
	defer out.Close()

	if _, err := out.Write(head); err != nil {
		os.Remove(path)
		return types.Attachment{}, fmt.Errorf("write upload: %w", err)
	}
	// +1 so an underreported Size is caught rather than truncated.
	written, err := io.Copy(out, io.LimitReader(f, limit+1))
	if err != nil {
		os.Remove(path)
		return types.Attachment{}, fmt.Errorf("write upload: %w", err)
	}
	if int64(len(head))+written > limit {
		os.Remove(path)
		return types.Attachment{}, fmt.Errorf("%q exceeds %d byte limit for %s", fh.Filename, limit, mediaType)
	}

	return types.Attachment{Path: path, MediaType: mediaType}, nil
}

// Cleanup removes the whole upload directory.
func (u *uploadStore) Cleanup() {
	if err := os.RemoveAll(u.dir); err != nil {
		u.logger.Warn("upload cleanup failed", zap.String("dir", u.dir), zap.Error(err))
	}
}

// sniffMediaType identifies the upload by magic bytes. Only the types we
// can forward to a provider are accepted.
func sniffMediaType(head []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(head, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png", true
	case bytes.HasPrefix(head, []byte("\xff\xd8\xff")):
		return "image/jpeg", true
	case bytes.HasPrefix(head, []byte("GIF87a")), bytes.HasPrefix(head, []byte("GIF89a")):
		return "image/gif", true
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP")):
		return "image/webp", true
	case bytes.HasPrefix(head, []byte("%PDF-")):
		return "application/pdf", true
	}
	return "", false
}

func capFor(mediaType string) int64 {
	switch mediaType {
	case "application/pdf":
		return MaxPDFBytes
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		return MaxImageBytes
	}
	return MaxUploadBytes
}

func extFor(mediaType string) string {
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	}
	return ""
}
