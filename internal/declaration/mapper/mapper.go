// Package mapper wraps the external XML-to-declaration mapper and resolves
// the rich per-goods detail for a declaration, falling back to the summary
// row when no 61.1 XML is available or the mapper fails.
package mapper

import (
	"fmt"

	"github.com/OpenCCD/archive/internal/declaration/model"
)

// Mapper converts a full 61.1 XML document into a structured declaration.
// The implementation is an external collaborator and is treated as a black
// box that may fail or panic on hostile input.
type Mapper interface {
	Map(xml string) (*model.MappedDeclaration, error)
}

// Func adapts a plain function to the Mapper interface.
type Func func(xml string) (*model.MappedDeclaration, error)

func (f Func) Map(xml string) (*model.MappedDeclaration, error) {
	return f(xml)
}

// safeMap invokes the external mapper behind a failure boundary: a panic in
// the mapper is converted into an error so one hostile payload cannot take
// down a whole export.
func safeMap(m Mapper, xml string) (mapped *model.MappedDeclaration, err error) {
	defer func() {
		if r := recover(); r != nil {
			mapped = nil
			err = fmt.Errorf("mapper panicked: %v", r)
		}
	}()
	return m.Map(xml)
}
