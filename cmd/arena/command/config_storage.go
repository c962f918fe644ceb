package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-arena/internal/catalog"
	"github.com/pixil98/go-arena/internal/storage"
	"github.com/pixil98/go-errors"
)

type StorageConfig struct {
	// Characters and Dice are optional asset directories overriding the
	// built-in catalogs
	Characters AssetConfig[*catalog.Character] `json:"characters"`
	Dice       AssetConfig[*catalog.Die]       `json:"dice"`

	// Matches is where per-match snapshot documents live
	Matches MatchStoreConfig `json:"matches"`
}

func (c *StorageConfig) Validate() error {
	el := errors.NewErrorList()
	el.Add(c.Characters.Validate("characters"))
	el.Add(c.Dice.Validate("dice"))
	el.Add(c.Matches.Validate())
	return el.Err()
}

func (c *StorageConfig) BuildCharacterStore() (storage.Storer[*catalog.Character], error) {
	if c.Characters.Path == "" {
		return storage.NewStaticStore(catalog.DefaultCharacters())
	}
	return c.Characters.BuildFileStore()
}

func (c *StorageConfig) BuildDiceStore() (storage.Storer[*catalog.Die], error) {
	if c.Dice.Path == "" {
		return storage.NewStaticStore(catalog.DefaultDice())
	}
	return c.Dice.BuildFileStore()
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		// Built-in catalog is used
		return nil
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}

type MatchStoreConfig struct {
	Path string `json:"path"`
}

func (c *MatchStoreConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("matches: path is required")
	}
	return nil
}
