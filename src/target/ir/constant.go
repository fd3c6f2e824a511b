package ir

import (
	"fmt"

	"lowerc/src/target/types"
)

// Constant is a literal value materialized in a block: a number, boolean,
// pointer-sized integer, or a reference to a module global.
type Constant struct {
	id      int
	name    string
	typ     types.Type
	float   float64
	boolean bool
	integer int64
	global  *Global
}

func (c *Constant) ID() int               { return c.id }
func (c *Constant) Name() string          { return c.name }
func (c *Constant) ValueType() types.Type { return c.typ }

func (c *Constant) String() string {
	if c.global != nil {
		return fmt.Sprintf("%%%s = constant %s", c.name, c.global.String())
	}
	switch c.typ.(type) {
	case types.PrimitiveType:
		p := c.typ.(types.PrimitiveType).Kind
		switch p {
		case types.Float64:
			return fmt.Sprintf("%%%s = constant.f64 %g", c.name, c.float)
		case types.Bool1:
			return fmt.Sprintf("%%%s = constant.i1 %v", c.name, c.boolean)
		default:
			return fmt.Sprintf("%%%s = constant.iptr %d", c.name, c.integer)
		}
	}
	return fmt.Sprintf("%%%s = constant %s", c.name, c.typ)
}
