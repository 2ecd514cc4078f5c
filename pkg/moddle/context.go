package moddle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/logflow/bpmnctx/pkg/errors"
)

// Reference records that Element carries a reference property pointing at ID,
// e.g. a sequence flow (Element) whose bpmn:sourceRef (Property) is "start" (ID).
// Element is nil when the parser could not resolve the carrier.
type Reference struct {
	ID       string   `json:"id"`
	Property string   `json:"property"`
	Element  *Element `json:"element,omitempty"`
}

// RootHandler exposes the top-level definitions element.
type RootHandler struct {
	Element *Element `json:"element"`
}

// Context is the complete parser output.
type Context struct {
	ElementsByID map[string]*Element `json:"elementsById,omitempty"`
	References   []Reference         `json:"references"`
	RootHandler  RootHandler         `json:"rootHandler"`
}

// Root returns the definitions element.
func (c *Context) Root() *Element {
	if c == nil {
		return nil
	}
	return c.RootHandler.Element
}

// Index rebuilds ElementsByID from the tree when the parser did not supply it and
// re-links reference carriers to the indexed element with the same id.
func (c *Context) Index() {
	if len(c.ElementsByID) == 0 {
		c.ElementsByID = make(map[string]*Element)
		Walk(c.Root(), func(el *Element) {
			if el.ID == "" {
				return
			}
			if _, seen := c.ElementsByID[el.ID]; !seen {
				c.ElementsByID[el.ID] = el
			}
		})
	}

	for i := range c.References {
		el := c.References[i].Element
		if el == nil || el.ID == "" {
			continue
		}
		if indexed, ok := c.ElementsByID[el.ID]; ok {
			c.References[i].Element = indexed
		}
	}
}

// Decode reads a moddle context from JSON.
func Decode(r io.Reader) (*Context, error) {
	var c Context
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, err
	}
	if c.Root() == nil {
		return nil, fmt.Errorf("missing rootHandler.element")
	}
	c.Index()
	return &c, nil
}

// Load reads a moddle context JSON file.
func Load(path string) (*Context, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound(path)
		}
		return nil, errors.InvalidDocument(path, err)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, errors.InvalidDocument(path, err)
	}
	return c, nil
}
