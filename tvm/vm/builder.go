package vm

// Builder emits a program instruction by instruction. Constants and witness
// values are declared up front so that every register handle it returns is the
// final absolute index; the success register is the first computed register.
type Builder struct {
	modulus      U256
	hardcoded    []U256
	witness      []U256
	constants    map[U256]Reg
	instructions []Instruction
	next         Reg
}

func NewBuilder(modulus U256, hardcoded, witness []U256) *Builder {
	b := &Builder{
		modulus:   modulus,
		hardcoded: append([]U256(nil), hardcoded...),
		witness:   append([]U256(nil), witness...),
		constants: make(map[U256]Reg, len(hardcoded)),
	}
	for i, v := range hardcoded {
		if _, ok := b.constants[v]; !ok {
			b.constants[v] = Reg(i)
		}
	}
	b.next = Reg(len(hardcoded)+len(witness)) + 1
	return b
}

// Constant returns the first hardcoded register holding v, if any.
func (b *Builder) Constant(v U256) (Reg, bool) {
	r, ok := b.constants[v]
	return r, ok
}

func (b *Builder) Hardcoded(i int) Reg { return Reg(i) }

func (b *Builder) Witness(i int) Reg { return Reg(len(b.hardcoded) + i) }

func (b *Builder) Success() Reg { return Reg(len(b.hardcoded) + len(b.witness)) }

// NewRegister allocates a fresh computed register.
func (b *Builder) NewRegister() Reg {
	r := b.next
	b.next++
	return r
}

// Emit appends an instruction.
func (b *Builder) Emit(in Instruction) {
	b.instructions = append(b.instructions, in)
}

// Len is the number of instructions emitted so far.
func (b *Builder) Len() int { return len(b.instructions) }

func (b *Builder) AddMod(x, y Reg) Reg { return b.emit2(AddMod, x, y) }
func (b *Builder) SubMod(x, y Reg) Reg { return b.emit2(SubMod, x, y) }
func (b *Builder) MulMod(x, y Reg) Reg { return b.emit2(MulMod, x, y) }
func (b *Builder) DivMod(x, y Reg) Reg { return b.emit2(DivMod, x, y) }
func (b *Builder) And(x, y Reg) Reg    { return b.emit2(And, x, y) }
func (b *Builder) Or(x, y Reg) Reg     { return b.emit2(Or, x, y) }
func (b *Builder) Equal(x, y Reg) Reg  { return b.emit2(Equal, x, y) }

func (b *Builder) Not(x Reg) Reg {
	t := b.NewRegister()
	b.Emit(Not(t, x))
	return t
}

func (b *Builder) Mov(x Reg) Reg {
	t := b.NewRegister()
	b.Emit(Mov(t, x))
	return t
}

func (b *Builder) AndBit(x, y Reg, bit uint8) Reg {
	t := b.NewRegister()
	b.Emit(AndBit(t, x, y, bit))
	return t
}

func (b *Builder) AndNotBit(x, y Reg, bit uint8) Reg {
	t := b.NewRegister()
	b.Emit(AndNotBit(t, x, y, bit))
	return t
}

func (b *Builder) AssertOne(x Reg)  { b.Emit(AssertOne(b.Success(), x)) }
func (b *Builder) AssertZero(x Reg) { b.Emit(AssertZero(b.Success(), x)) }

// AssertEqual asserts x == y through a temporary.
func (b *Builder) AssertEqual(x, y Reg) {
	b.AssertOne(b.Equal(x, y))
}

func (b *Builder) emit2(ctor func(t, x, y Reg) Instruction, x, y Reg) Reg {
	t := b.NewRegister()
	b.Emit(ctor(t, x, y))
	return t
}

// Build validates the emitted trace and freezes it into a Program.
func (b *Builder) Build() (*Program, error) {
	return NewProgram(b.modulus,
		append([]U256(nil), b.hardcoded...),
		append([]U256(nil), b.witness...),
		append([]Instruction(nil), b.instructions...),
		uint32(b.next),
		b.Success(),
	)
}
