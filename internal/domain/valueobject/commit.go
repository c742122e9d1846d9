package valueobject

import (
	"errors"
	"strings"
	"time"
)

// Commit представляет коммит, к которому привязан прогон бенчмарков (Value Object)
// Иммутабельный объект
type Commit struct {
	id        string
	message   string
	timestamp time.Time
	url       string
	author    string
	committer string
}

// NewCommit создает новый Commit с валидацией
func NewCommit(id, message string, timestamp time.Time, url string) (Commit, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Commit{}, errors.New("commit id cannot be empty")
	}

	if timestamp.IsZero() {
		return Commit{}, errors.New("commit timestamp cannot be zero")
	}

	return Commit{
		id:        id,
		message:   message,
		timestamp: timestamp,
		url:       url,
	}, nil
}

// WithAuthor возвращает копию коммита с указанными автором и коммиттером
func (c Commit) WithAuthor(author, committer string) Commit {
	c.author = author
	c.committer = committer
	return c
}

// ID возвращает полный хеш коммита
func (c Commit) ID() string {
	return c.id
}

// ShortID возвращает сокращенный хеш (используется как подпись оси X на графиках)
func (c Commit) ShortID() string {
	if len(c.id) <= 7 {
		return c.id
	}
	return c.id[:7]
}

// Message возвращает сообщение коммита
func (c Commit) Message() string {
	return c.message
}

// Timestamp возвращает время коммита
func (c Commit) Timestamp() time.Time {
	return c.timestamp
}

// URL возвращает ссылку на коммит
func (c Commit) URL() string {
	return c.url
}

// Author возвращает автора коммита
func (c Commit) Author() string {
	return c.author
}

// Committer возвращает коммиттера
func (c Commit) Committer() string {
	return c.committer
}

// Equals сравнивает два коммита по хешу
func (c Commit) Equals(other Commit) bool {
	return c.id == other.id
}
