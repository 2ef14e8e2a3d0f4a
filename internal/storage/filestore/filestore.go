// Пакет filestore — хранение загруженных файлов доказательств на локальном диске.
// Запись потоковая: temp файл → fsync → атомарный rename.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTooLarge — файл превышает допустимый размер.
	ErrTooLarge = errors.New("файл превышает допустимый размер")
	// ErrFileNotFound — файл отсутствует на диске.
	ErrFileNotFound = errors.New("файл не найден")
)

// FileStore — управление файлами доказательств на диске.
type FileStore struct {
	// dataDir — корневая директория загрузок (CV_UPLOAD_DIR)
	dataDir string
	// maxSize — максимальный размер одного файла в байтах
	maxSize int64
}

// SaveResult — результат сохранения файла на диск.
type SaveResult struct {
	// StoragePath — путь файла относительно dataDir
	StoragePath string
	// FullPath — путь файла на диске
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
}

// New создаёт FileStore и директорию загрузок, если её нет.
func New(dataDir string, maxSize int64) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию загрузок %s: %w", dataDir, err)
	}
	return &FileStore{dataDir: dataDir, maxSize: maxSize}, nil
}

// SaveFile записывает данные из reader в поддиректорию дела caseID.
// Формат имени: {caseID}/{name}_{timestamp}_{uuid}.{ext}
// При ошибке или превышении maxSize temp файл удаляется.
func (s *FileStore) SaveFile(reader io.Reader, originalFilename, caseID string) (*SaveResult, error) {
	dir := filepath.Join(s.dataDir, sanitize(caseID))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("ошибка создания директории дела: %w", err)
	}

	storageName := generateStorageName(originalFilename)
	fullPath := filepath.Join(dir, storageName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Читаем на байт больше лимита, чтобы отличить «ровно лимит» от превышения
	size, err := io.Copy(f, io.LimitReader(reader, s.maxSize+1))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}
	if size > s.maxSize {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: больше %d байт", ErrTooLarge, s.maxSize)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		StoragePath: filepath.ToSlash(filepath.Join(sanitize(caseID), storageName)),
		FullPath:    fullPath,
		Size:        size,
	}, nil
}

// Open открывает сохранённый файл для чтения.
// Вызывающий код обязан закрыть файл.
func (s *FileStore) Open(storagePath string) (*os.File, error) {
	f, err := os.Open(s.FullPath(storagePath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, storagePath)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", storagePath, err)
	}
	return f, nil
}

// FullPath возвращает путь к файлу на диске.
// Компоненты пути, выходящие за пределы dataDir, отбрасываются.
func (s *FileStore) FullPath(storagePath string) string {
	clean := filepath.Clean("/" + filepath.FromSlash(storagePath))
	return filepath.Join(s.dataDir, clean)
}

// DataDir возвращает путь к директории загрузок.
func (s *FileStore) DataDir() string {
	return s.dataDir
}

// generateStorageName генерирует имя файла для хранения.
// Пример: contract_20261019150405_a1b2c3d4.pdf
func generateStorageName(originalFilename string) string {
	ext := sanitizeExt(filepath.Ext(originalFilename))
	name := sanitize(strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename)))

	if len(name) > 50 {
		name = name[:50]
	}

	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8]

	return fmt.Sprintf("%s_%s_%s%s", name, ts, uid, ext)
}

// sanitizeExt оставляет в расширении только безопасные символы.
func sanitizeExt(ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return ""
	}
	clean := sanitize(ext)
	if clean == "file" && ext != "file" {
		return ""
	}
	if len(clean) > 10 {
		clean = clean[:10]
	}
	return "." + clean
}

// sanitize убирает небезопасные символы из строки для использования в имени файла.
// Оставляет только ASCII буквы, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}
