package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// BlockType discriminates the variants of Block.
type BlockType string

const (
	BlockText         BlockType = "text"
	BlockParagraph    BlockType = "paragraph"
	BlockHeading      BlockType = "heading"
	BlockH1           BlockType = "h1"
	BlockH2           BlockType = "h2"
	BlockImage        BlockType = "image"
	BlockList         BlockType = "list"
	BlockNumberedList BlockType = "numbered_list"
	BlockCode         BlockType = "code"
	BlockMap          BlockType = "map"
	BlockGrid         BlockType = "grid"
)

const (
	MaxBlocks     = 200
	MaxGridBlocks = 12
)

// Block is one segment of a post's structured content. Which fields are
// meaningful depends on Type.
type Block struct {
	Type BlockType `json:"type"`

	// text, paragraph, heading, h1, h2, code; also a grid cell caption
	Content string `json:"content,omitempty"`
	Level   int    `json:"level,omitempty"`

	// image
	Src     string `json:"src,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
	Layout  string `json:"layout,omitempty"`

	// list, numbered_list
	Items       []string `json:"items,omitempty"`
	NumberColor string   `json:"numberColor,omitempty"`

	// code, map
	Language    string `json:"language,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	// grid
	Columns int     `json:"columns,omitempty"`
	Blocks  []Block `json:"blocks,omitempty"`
}

// IsTextual reports whether the block carries prose in Content.
func (b Block) IsTextual() bool {
	switch b.Type {
	case BlockText, BlockParagraph, BlockHeading, BlockH1, BlockH2:
		return true
	default:
		return false
	}
}

// Validate checks a block and, for grids, its cells. Image sources must be
// resolved before validation.
func (b Block) Validate(path string) error {
	return b.validate(path, false)
}

func (b Block) validate(path string, nested bool) error {
	switch b.Type {
	case BlockText, BlockParagraph, BlockH1, BlockH2, BlockCode:
	case BlockHeading:
		if b.Level != 0 && (b.Level < 1 || b.Level > 6) {
			return fmt.Errorf("%s: heading level must be between 1 and 6", path)
		}
	case BlockImage:
		if b.Src == "" {
			return fmt.Errorf("%s: image block has no source", path)
		}
	case BlockList, BlockNumberedList:
		for _, item := range b.Items {
			if len(item) > 2000 {
				return fmt.Errorf("%s: list item too long", path)
			}
		}
	case BlockMap:
		if b.Location == "" && b.Title == "" {
			return fmt.Errorf("%s: map block needs a location or title", path)
		}
	case BlockGrid:
		if nested {
			return fmt.Errorf("%s: grids cannot be nested", path)
		}
		if len(b.Blocks) > MaxGridBlocks {
			return fmt.Errorf("%s: grid holds at most %d blocks", path, MaxGridBlocks)
		}
		if b.Columns < 0 || b.Columns > 4 {
			return fmt.Errorf("%s: grid columns must be between 1 and 4", path)
		}
		for j, cell := range b.Blocks {
			if err := cell.validate(fmt.Sprintf("%s.blocks[%d]", path, j), true); err != nil {
				return err
			}
		}
	case "":
		return fmt.Errorf("%s: missing block type", path)
	default:
		return fmt.Errorf("%s: unknown block type %q", path, b.Type)
	}
	if b.Type != BlockGrid && len(b.Blocks) > 0 {
		return fmt.Errorf("%s: only grid blocks may contain blocks", path)
	}
	return nil
}

// Blocks is the ordered structured content of a post, stored as JSON.
type Blocks []Block

// ParseBlocks decodes the JSON form field a client submits.
func ParseBlocks(raw string) (Blocks, error) {
	if raw == "" {
		return Blocks{}, nil
	}
	var blocks Blocks
	if err := json.Unmarshal([]byte(raw), &blocks); err != nil {
		return nil, err
	}
	if blocks == nil {
		blocks = Blocks{}
	}
	return blocks, nil
}

// Validate checks every block in order.
func (bs Blocks) Validate() error {
	if len(bs) > MaxBlocks {
		return fmt.Errorf("a post holds at most %d blocks", MaxBlocks)
	}
	for i, b := range bs {
		if err := b.Validate(fmt.Sprintf("blocks[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

// Summary joins the content of text blocks, cut at limit runes plus "...".
func (bs Blocks) Summary(limit int) string {
	summary := ""
	for _, b := range bs {
		if b.Type != BlockText || b.Content == "" {
			continue
		}
		summary += b.Content + " "
		if r := []rune(summary); len(r) > limit {
			return string(r[:limit]) + "..."
		}
	}
	return summary
}

// Value implements driver.Valuer.
func (bs Blocks) Value() (driver.Value, error) {
	if bs == nil {
		return "[]", nil
	}
	data, err := json.Marshal(bs)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (bs *Blocks) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*bs = Blocks{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("blocks: unsupported column type")
	}
	if len(data) == 0 {
		*bs = Blocks{}
		return nil
	}
	return json.Unmarshal(data, bs)
}

// GormDataType implements schema.GormDataTypeInterface.
func (Blocks) GormDataType() string {
	return "json"
}

// GormDBDataType picks jsonb on postgres and JSON text elsewhere.
func (Blocks) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "JSON"
}
