// Пакет digest — SHA-256 отпечаток содержимого файлов доказательств.
// Поток читается блоками фиксированного размера, поэтому расход памяти
// не зависит от размера файла.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ChunkSize — размер буфера чтения.
const ChunkSize = 32 << 10

// ErrIO — ошибка чтения потока или файла при вычислении хэша.
var ErrIO = errors.New("ошибка ввода-вывода при вычислении хэша")

// Sum вычисляет SHA-256 содержимого r и возвращает его в hex (64 символа, нижний регистр).
func Sum(r io.Reader) (string, error) {
	hasher := sha256.New()
	buf := make([]byte, ChunkSize)
	// io.CopyBuffer использует WriterTo/ReaderFrom при наличии,
	// оборачиваем r, чтобы чтение всегда шло через buf.
	if _, err := io.CopyBuffer(hasher, struct{ io.Reader }{r}, buf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err) //nolint:errorlint // намеренный двойной wrap
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// File открывает файл по пути path и вычисляет его SHA-256.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: открытие %s: %w", ErrIO, path, err) //nolint:errorlint // намеренный двойной wrap
	}
	defer f.Close()

	return Sum(f)
}
