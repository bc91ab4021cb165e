package logs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// MaxLogFileSize é o tamanho máximo do arquivo de log em bytes (10MB)
	MaxLogFileSize = 10 * 1024 * 1024
	// MaxLogFiles é o número máximo de arquivos de log rotacionados
	MaxLogFiles = 5
)

// Options configuração do logger global
type Options struct {
	Debug   bool
	File    string    // arquivo JSON opcional (tee)
	Console io.Writer // padrão os.Stderr
	NoColor bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup configura o logger global do zerolog: console legível no stderr e,
// se informado, linhas JSON no arquivo. O Closer fecha o arquivo.
func Setup(opts Options) (io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := opts.Console
	if out == nil {
		out = os.Stderr
	}
	console := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    opts.NoColor,
	}

	if opts.File == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return nopCloser{}, nil
	}

	file, err := openLogFile(opts.File)
	if err != nil {
		return nil, err
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, file)).With().Timestamp().Logger()
	log.Debug().Str("file", opts.File).Msg("File logging enabled")

	return file, nil
}

// openLogFile abre o arquivo em append, rotacionando se passou do tamanho máximo
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if stat, err := os.Stat(path); err == nil && stat.Size() >= MaxLogFileSize {
		rotate(path)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// rotate move app.log -> app.1.log -> app.2.log ... descartando o mais antigo
func rotate(path string) {
	baseDir := filepath.Dir(path)
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)

	numbered := func(i int) string {
		return filepath.Join(baseDir, fmt.Sprintf("%s.%d%s", name, i, ext))
	}

	os.Remove(numbered(MaxLogFiles))
	for i := MaxLogFiles - 1; i > 0; i-- {
		os.Rename(numbered(i), numbered(i+1))
	}
	os.Rename(path, numbered(1))
}
