package datafile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/dreschagin/bench-history/internal/application/dto"
)

// Пакет datafile реализует кодек data-файла дашборда:
// window.BENCHMARK_DATA = { ... }
// Parse принимает файл целиком, Render генерирует его заново.

const assignmentPrefix = "window.BENCHMARK_DATA"

// Parse разбирает содержимое data-файла.
// Допускается как присваивание window.BENCHMARK_DATA, так и чистый JSON;
// завершающая точка с запятой игнорируется.
func Parse(raw []byte) (*dto.BenchmarkDataDTO, error) {
	payload := strings.TrimSpace(string(raw))
	if payload == "" {
		return nil, fmt.Errorf("data file is empty")
	}

	if strings.HasPrefix(payload, assignmentPrefix) {
		payload = strings.TrimPrefix(payload, assignmentPrefix)
		payload = strings.TrimSpace(payload)
		if !strings.HasPrefix(payload, "=") {
			return nil, fmt.Errorf("malformed assignment: expected '=' after %s", assignmentPrefix)
		}
		payload = strings.TrimSpace(strings.TrimPrefix(payload, "="))
	}

	payload = strings.TrimSuffix(strings.TrimSpace(payload), ";")

	var data dto.BenchmarkDataDTO
	decoder := json.NewDecoder(strings.NewReader(payload))
	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode benchmark data: %w", err)
	}

	// Хвост после объекта означает, что это не одиночный литерал
	if decoder.More() {
		return nil, fmt.Errorf("trailing content after benchmark data literal")
	}

	return &data, nil
}

// Validate проверяет инварианты схемы data-файла.
func Validate(data *dto.BenchmarkDataDTO) error {
	if data == nil {
		return fmt.Errorf("benchmark data cannot be nil")
	}

	if data.LastUpdate < 0 {
		return fmt.Errorf("lastUpdate cannot be negative")
	}

	if data.Entries == nil {
		return fmt.Errorf("entries cannot be null")
	}

	for suite, runs := range data.Entries {
		if strings.TrimSpace(suite) == "" {
			return fmt.Errorf("suite label cannot be empty")
		}

		var prevDate int64
		for i, run := range runs {
			if err := validateRun(run); err != nil {
				return fmt.Errorf("suite %q, run %d: %w", suite, i, err)
			}

			// Последовательность прогонов упорядочена по date по возрастанию
			if run.Date < prevDate {
				return fmt.Errorf("suite %q, run %d: runs out of order", suite, i)
			}
			prevDate = run.Date
		}
	}

	return nil
}

func validateRun(run dto.BenchmarkRunDTO) error {
	if strings.TrimSpace(run.Commit.ID) == "" {
		return fmt.Errorf("commit id cannot be empty")
	}

	if run.Date <= 0 {
		return fmt.Errorf("date must be positive epoch millis")
	}

	if len(run.Benches) == 0 {
		return fmt.Errorf("benches cannot be empty")
	}

	for _, bench := range run.Benches {
		if strings.TrimSpace(bench.Name) == "" {
			return fmt.Errorf("measurement name cannot be empty")
		}
		if strings.TrimSpace(bench.Unit) == "" {
			return fmt.Errorf("measurement %q: unit cannot be empty", bench.Name)
		}
		if math.IsNaN(bench.Value) || math.IsInf(bench.Value, 0) {
			return fmt.Errorf("measurement %q: value must be finite", bench.Name)
		}
		if bench.Value < 0 {
			return fmt.Errorf("measurement %q: value cannot be negative", bench.Name)
		}
	}

	return nil
}

// Render генерирует data-файл c присваиванием window.BENCHMARK_DATA.
// Вывод детерминирован: ключи entries сериализуются в алфавитном порядке.
func Render(data *dto.BenchmarkDataDTO) ([]byte, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(assignmentPrefix)
	buf.WriteString(" = ")

	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(data); err != nil {
		return nil, fmt.Errorf("failed to encode benchmark data: %w", err)
	}

	return buf.Bytes(), nil
}
