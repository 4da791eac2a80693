package service

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cydxin/birdchat/wire"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 未配置上传上限时的默认值
const defaultMaxUploadBytes = 25 << 20

// FileService 文件消息的本地存储。文件落到 Upload.Dir/{yyyymm}/，URL 为 Upload.URLPrefix + 相对路径。
type FileService struct {
	*Service
}

func NewFileService(s *Service) *FileService {
	return &FileService{Service: s}
}

func (s *FileService) maxBytes() int64 {
	if s.Upload.MaxBytes > 0 {
		return s.Upload.MaxBytes
	}
	return defaultMaxUploadBytes
}

// Save 写入文件。超过上限返回 ErrInvalidParam 并删除已写入部分。
func (s *FileService) Save(ctx context.Context, uid uint64, name, contentType string, r io.Reader) (*wire.UploadedFile, error) {
	if strings.TrimSpace(s.Upload.Dir) == "" {
		return nil, ErrInvalidParam
	}
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}

	rel := path.Join(s.now().Format("200601"), uuid.NewString()+strings.ToLower(filepath.Ext(name)))
	full := filepath.Join(s.Upload.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(full)
	if err != nil {
		return nil, err
	}

	limit := s.maxBytes()
	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > limit {
		err = ErrInvalidParam
	}
	if err != nil {
		_ = os.Remove(full)
		return nil, err
	}

	url := rel
	if p := strings.TrimSuffix(s.Upload.URLPrefix, "/"); p != "" {
		url = p + "/" + rel
	}
	s.log().Info("file uploaded", zap.Uint64("uid", uid), zap.String("url", url), zap.Int64("size", n))
	return &wire.UploadedFile{URL: url, Name: name, Size: n, Type: contentType}, nil
}
