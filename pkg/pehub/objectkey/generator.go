package objectkey

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates an object key for storage backends
	GenerateKey(metadata *KeyMetadata) string
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	FileName   string
	StageID    string
	CategoryID string
	Time       time.Time
}

// RandomFunc returns a short random token.
type RandomFunc func() string

// AdminGenerator lays files out by taxonomy position:
// {stageId}/{categoryId}/{unixMillis}_{random}.{ext}
type AdminGenerator struct {
	Random RandomFunc
}

func NewAdminGenerator() *AdminGenerator {
	return &AdminGenerator{Random: RandomToken}
}

func (g *AdminGenerator) GenerateKey(metadata *KeyMetadata) string {
	m := orEmpty(metadata)
	ts := m.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("%s/%s/%d_%s.%s",
		sanitizePathComponent(m.StageID),
		sanitizePathComponent(m.CategoryID),
		ts.UnixMilli(),
		g.random(),
		Extension(m.FileName))
}

func (g *AdminGenerator) random() string {
	if g.Random == nil {
		return RandomToken()
	}
	return g.Random()
}

// RequestGenerator places end-user submissions in a flat staging area:
// requests/{random}.{ext}
type RequestGenerator struct {
	Random RandomFunc
}

func NewRequestGenerator() *RequestGenerator {
	return &RequestGenerator{Random: RandomToken}
}

func (g *RequestGenerator) GenerateKey(metadata *KeyMetadata) string {
	m := orEmpty(metadata)
	random := g.Random
	if random == nil {
		random = RandomToken
	}
	return fmt.Sprintf("requests/%s.%s", random(), Extension(m.FileName))
}

// RandomToken returns a lowercase base-36 token drawn from crypto/rand.
func RandomToken() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return strconv.FormatUint(binary.BigEndian.Uint64(b[:]), 36)
}

// Extension returns the lowercase extension of fileName without the dot,
// or "bin" when there is none.
func Extension(fileName string) string {
	ext := strings.TrimPrefix(path.Ext(strings.TrimSpace(fileName)), ".")
	ext = sanitizeExtension(ext)
	if ext == "" {
		return "bin"
	}
	return ext
}

func orEmpty(m *KeyMetadata) KeyMetadata {
	if m == nil {
		return KeyMetadata{}
	}
	return *m
}

func sanitizeExtension(ext string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(ext) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sanitizePathComponent keeps a single path segment free of separators and
// traversal.
func sanitizePathComponent(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "_")
	s = replacer.Replace(s)
	if s == "" || s == "." {
		return "_"
	}
	return s
}
