package dotEnvLoader

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type DotEnvLoader struct {
	Path string
}

// Load читает пары из .env файла и накладывает поверх них переменные
// окружения процесса. Отсутствие файла не считается ошибкой.
func (l DotEnvLoader) Load() (map[string]string, error) {
	path := l.Path
	if path == "" {
		path = ".env"
	}

	envs, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		envs = make(map[string]string)
	}

	for _, pair := range os.Environ() {
		key, value, found := strings.Cut(pair, "=")
		if found {
			envs[key] = value
		}
	}

	return envs, nil
}
