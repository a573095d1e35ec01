package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"emis-vote/backend/config"
)

var (
	ErrFileTooLarge    = errors.New("文件大小超出限制")
	ErrUnsupportedType = errors.New("仅支持 JPEG/PNG 图片")
)

// 上传文件分类目录
const (
	KindPoster = "posters"
	KindPhoto  = "photos"
)

var allowedMIME = []string{"image/jpeg", "image/png"}

// LocalStore 本地磁盘图片存储
// 文件名按 UUID 生成，类型以内容嗅探为准，不信任客户端声明的 Content-Type
type LocalStore struct {
	dir        string
	publicPath string
	maxBytes   int64
}

// NewLocalStore 创建本地存储并确保根目录存在
func NewLocalStore(cfg *config.UploadConfig) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &LocalStore{
		dir:        cfg.Dir,
		publicPath: "/" + strings.Trim(cfg.PublicPath, "/"),
		maxBytes:   cfg.MaxBytes(),
	}, nil
}

// Dir 上传根目录（用于静态文件路由）
func (s *LocalStore) Dir() string { return s.dir }

// PublicPath 对外访问前缀
func (s *LocalStore) PublicPath() string { return s.publicPath }

// Save 校验并保存 multipart 文件，返回对外访问路径
func (s *LocalStore) Save(fh *multipart.FileHeader, kind string) (string, error) {
	if fh.Size > s.maxBytes {
		return "", ErrFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("打开上传文件失败: %w", err)
	}
	defer f.Close()

	return s.Store(f, kind)
}

// Store 从 reader 读取并保存
func (s *LocalStore) Store(r io.Reader, kind string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("读取上传文件失败: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrFileTooLarge
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedMIME...) {
		return "", ErrUnsupportedType
	}

	subDir := filepath.Join(s.dir, kind)
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		return "", fmt.Errorf("创建上传目录失败: %w", err)
	}

	name := uuid.NewString() + mt.Extension()
	if err := os.WriteFile(filepath.Join(subDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("写入上传文件失败: %w", err)
	}

	return path.Join(s.publicPath, kind, name), nil
}

// Remove 删除此前保存的文件；路径不属于本存储或文件不存在时忽略
func (s *LocalStore) Remove(publicPath string) error {
	if publicPath == "" || !strings.HasPrefix(publicPath, s.publicPath+"/") {
		return nil
	}
	rel := strings.TrimPrefix(publicPath, s.publicPath+"/")
	if strings.Contains(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
