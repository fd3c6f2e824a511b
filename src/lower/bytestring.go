package lower

import (
	"fmt"

	"github.com/funvibe/funbit/pkg/funbit"

	"lowerc/src/target/ir"
)

// assembleByteString builds a ByteString literal's backing buffer through
// funbit's segment-oriented builder rather than ad hoc byte concatenation,
// so the literal carries explicit unit/endianness metadata all the way to
// the static global it lowers into (4.F).
func assembleByteString(data []byte) ([]byte, error) {
	b := funbit.NewBuilder()
	funbit.AddBinary(b, data, funbit.WithSize(uint(len(data))), funbit.WithUnit(8), funbit.WithType("binary"))
	bs, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("lower: assembling bytestring literal: %w", err)
	}
	return bs.ToBytes(), nil
}

// lowerByteStringLiteral emits the { i8*, iptr } record for a ByteString
// literal: a static global holding the assembled bytes (tagged, since it is
// non-heap) and its length.
func (c *funcCtx) lowerByteStringLiteral(data []byte) (ir.Value, error) {
	assembled, err := assembleByteString(data)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("str.%d", c.lowerer.nextStringID())
	g := c.lowerer.m.CreateStaticString(name, assembled)
	ref := c.b.CreateGlobalRef(g)
	tagged := c.emitTagStatic(ref)
	length := c.b.CreateConstantInt(int64(len(assembled)))
	return c.b.CreateRecord(byteStringRecordType(), []ir.Value{tagged, length}), nil
}
