// Package draftfile reads and writes local markdown drafts and watches them
// for edits.
//
// A draft file is markdown with an optional YAML front matter block:
//
//	---
//	id: 7d1c0a3e-...   # written back after the first save
//	title: Hello
//	tags: [go, web]    # or "go, web"
//	---
//
//	Body text.
//
// Everything after the closing fence is the content.
package draftfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jsamuelsen/blogdraft/internal/domain"
)

const fence = "---"

// ErrUnterminated is returned when the front matter has no closing fence.
var ErrUnterminated = errors.New("front matter is not closed")

// Document is one revision of a draft file.
type Document struct {
	// ID is empty until the post has been created on the server.
	ID    string
	Draft domain.Draft
}

type frontMatter struct {
	ID    string   `yaml:"id,omitempty"`
	Title string   `yaml:"title"`
	Tags  tagField `yaml:"tags,omitempty"`
}

// tagField accepts a YAML list or a comma separated string.
type tagField []string

func (t *tagField) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}

		*t = domain.NormalizeTags(list)
	case yaml.ScalarNode:
		*t = domain.ParseTags(node.Value)
	default:
		return fmt.Errorf("line %d: tags must be a list or a comma separated string", node.Line)
	}

	return nil
}

// Parse decodes a draft file. Title and content are trimmed.
func Parse(data []byte) (*Document, error) {
	header, body, err := split(data)
	if err != nil {
		return nil, err
	}

	var fm frontMatter
	if len(header) > 0 {
		if err := yaml.Unmarshal(header, &fm); err != nil {
			return nil, fmt.Errorf("parsing front matter: %w", err)
		}
	}

	tags := []string(fm.Tags)
	if tags == nil {
		tags = []string{}
	}

	return &Document{
		ID: strings.TrimSpace(fm.ID),
		Draft: domain.Draft{
			Title:   strings.TrimSpace(fm.Title),
			Content: strings.TrimSpace(string(body)),
			Tags:    tags,
		},
	}, nil
}

// Encode renders doc as a draft file.
func Encode(doc *Document) ([]byte, error) {
	header, err := yaml.Marshal(frontMatter{ID: doc.ID, Title: doc.Draft.Title, Tags: doc.Draft.Tags})
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(fence + "\n")
	buf.Write(header)
	buf.WriteString(fence + "\n\n")

	if doc.Draft.Content != "" {
		buf.WriteString(doc.Draft.Content)
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// Read parses the file at path.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading draft: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}

// Write replaces the file at path with doc.
func Write(path string, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}

	return writeAtomic(path, data)
}

// SetID records id in the front matter of the file at path. Other front
// matter keys and the body are kept byte for byte.
func SetID(path, id string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading draft: %w", err)
	}

	header, body, err := split(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	var root yaml.Node
	if len(header) > 0 {
		if err := yaml.Unmarshal(header, &root); err != nil {
			return fmt.Errorf("%s: parsing front matter: %w", path, err)
		}
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 && root.Content[0].Kind == yaml.MappingNode {
		mapping = root.Content[0]
	}

	setKey(mapping, "id", id)

	out, err := yaml.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("encoding front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(fence + "\n")
	buf.Write(out)
	buf.WriteString(fence + "\n")

	if header == nil && len(body) > 0 {
		buf.WriteByte('\n')
	}

	buf.Write(body)

	return writeAtomic(path, buf.Bytes())
}

// setKey sets key in a mapping node, inserting it first when missing.
func setKey(mapping *yaml.Node, key, value string) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
			return
		}
	}

	mapping.Content = append([]*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	}, mapping.Content...)
}

// split separates the front matter from the body. header is nil when the
// file has no front matter.
func split(data []byte) (header, body []byte, err error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))

	first, rest, found := bytes.Cut(data, []byte("\n"))
	if !found || !isFence(first) {
		return nil, data, nil
	}

	offset := 0

	for {
		line, next, more := bytes.Cut(rest[offset:], []byte("\n"))
		if isFence(line) {
			return rest[:offset], next, nil
		}

		if !more {
			return nil, nil, ErrUnterminated
		}

		offset += len(line) + 1
	}
}

func isFence(line []byte) bool {
	return string(bytes.TrimRight(line, " \t")) == fence
}

func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing draft: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}

	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}

	return nil
}
