// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package assembler

import (
	"bufio"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/lassandro/gochip8/pkg/encoding"
	"github.com/lassandro/gochip8/pkg/machine"
)

func parseDirective(ident string) DirectiveType {
	if strings.EqualFold(ident, ".ORG") {
		return DIRECTIVE_ORG
	} else if strings.EqualFold(ident, ".DB") {
		return DIRECTIVE_DB
	} else if strings.EqualFold(ident, ".DW") {
		return DIRECTIVE_DW
	} else if strings.EqualFold(ident, ".TEXT") {
		return DIRECTIVE_TEXT
	} else if strings.EqualFold(ident, ".END") {
		return DIRECTIVE_END
	}

	return DIRECTIVE_INVALID
}

func parseInstruction(ident string) InstructionType {
	if strings.EqualFold(ident, "CLS") {
		return INSTRUCTION_CLS
	} else if strings.EqualFold(ident, "RET") {
		return INSTRUCTION_RET
	} else if strings.EqualFold(ident, "SYS") {
		return INSTRUCTION_SYS
	} else if strings.EqualFold(ident, "JP") {
		return INSTRUCTION_JP
	} else if strings.EqualFold(ident, "CALL") {
		return INSTRUCTION_CALL
	} else if strings.EqualFold(ident, "SE") {
		return INSTRUCTION_SE
	} else if strings.EqualFold(ident, "SNE") {
		return INSTRUCTION_SNE
	} else if strings.EqualFold(ident, "LD") {
		return INSTRUCTION_LD
	} else if strings.EqualFold(ident, "ADD") {
		return INSTRUCTION_ADD
	} else if strings.EqualFold(ident, "OR") {
		return INSTRUCTION_OR
	} else if strings.EqualFold(ident, "AND") {
		return INSTRUCTION_AND
	} else if strings.EqualFold(ident, "XOR") {
		return INSTRUCTION_XOR
	} else if strings.EqualFold(ident, "SUB") {
		return INSTRUCTION_SUB
	} else if strings.EqualFold(ident, "SHR") {
		return INSTRUCTION_SHR
	} else if strings.EqualFold(ident, "SUBN") {
		return INSTRUCTION_SUBN
	} else if strings.EqualFold(ident, "SHL") {
		return INSTRUCTION_SHL
	} else if strings.EqualFold(ident, "RND") {
		return INSTRUCTION_RND
	} else if strings.EqualFold(ident, "DRW") {
		return INSTRUCTION_DRW
	} else if strings.EqualFold(ident, "SKP") {
		return INSTRUCTION_SKP
	} else if strings.EqualFold(ident, "SKNP") {
		return INSTRUCTION_SKNP
	}

	return INSTRUCTION_INVALID
}

func fitLiteral(position Cursor, value int, bits LiteralType) (uint16, error) {
	limit := 1 << bits

	// Negative values are accepted as two's complement
	if value >= limit || value < -(limit>>1) {
		return 0, &OversizedLiteralError{position, limit - 1, value}
	}

	return uint16(value & (limit - 1)), nil
}

func parseLiteral(token *Token, bits LiteralType) (uint16, error) {
	value, err := encoding.DecodeLiteral(token.Value)

	if err != nil {
		return 0, &InvalidLiteralError{token.Position}
	}

	return fitLiteral(token.Position, value, bits)
}

func parseRegister(token *Token) (int, bool) {
	ident := token.Value

	if len(ident) != 2 || (ident[0] != 'V' && ident[0] != 'v') {
		return 0, false
	}

	reg, err := strconv.ParseUint(ident[1:], 16, 8)

	if err != nil {
		return 0, false
	}

	return int(reg), true
}

func parseOperand(token *Token) (Operand, error) {
	switch token.Type {
	case TOKEN_LITERAL:
		value, err := encoding.DecodeLiteral(token.Value)

		if err != nil {
			return Operand{}, &InvalidLiteralError{token.Position}
		}

		return Operand{OPERAND_LITERAL, token, value}, nil

	case TOKEN_IDENT:
		if reg, ok := parseRegister(token); ok {
			return Operand{OPERAND_REGISTER, token, reg}, nil
		}

		switch strings.ToUpper(token.Value) {
		case "I":
			return Operand{OPERAND_INDEX, token, 0}, nil
		case "[I]":
			return Operand{OPERAND_INDIRECT, token, 0}, nil
		case "DT":
			return Operand{OPERAND_DELAY, token, 0}, nil
		case "ST":
			return Operand{OPERAND_SOUND, token, 0}, nil
		case "K":
			return Operand{OPERAND_KEY, token, 0}, nil
		case "F":
			return Operand{OPERAND_FONT, token, 0}, nil
		case "B":
			return Operand{OPERAND_BCD, token, 0}, nil
		}

		return Operand{OPERAND_LABEL, token, 0}, nil
	}

	return Operand{}, &InvalidOperandError{
		token.Position,
		[]TokenType{TOKEN_IDENT, TOKEN_LITERAL},
		token.Type,
	}
}

func operandSignature(operands []Operand) string {
	parts := make([]string, len(operands))

	for i, operand := range operands {
		switch operand.Type {
		case OPERAND_REGISTER:
			parts[i] = "V"
		case OPERAND_INDEX:
			parts[i] = "I"
		case OPERAND_INDIRECT:
			parts[i] = "[I]"
		case OPERAND_DELAY:
			parts[i] = "DT"
		case OPERAND_SOUND:
			parts[i] = "ST"
		case OPERAND_KEY:
			parts[i] = "K"
		case OPERAND_FONT:
			parts[i] = "F"
		case OPERAND_BCD:
			parts[i] = "B"
		case OPERAND_LITERAL:
			parts[i] = "n"
		case OPERAND_LABEL:
			parts[i] = "a"
		}
	}

	return strings.Join(parts, ",")
}

func operandCounts(instruction InstructionType) []int {
	switch instruction {
	case INSTRUCTION_CLS, INSTRUCTION_RET:
		return []int{0}
	case INSTRUCTION_SYS, INSTRUCTION_CALL, INSTRUCTION_SKP, INSTRUCTION_SKNP:
		return []int{1}
	case INSTRUCTION_JP, INSTRUCTION_SHR, INSTRUCTION_SHL:
		return []int{1, 2}
	case INSTRUCTION_DRW:
		return []int{3}
	default:
		return []int{2}
	}
}

// Encodes a single instruction. Address operands naming a label are
// returned so the caller can patch them once every label is known.
func assembleInstruction(
	instruction InstructionType,
	keyword *Token,
	operands []Operand,
) (uint16, *Operand, error) {
	if counts := operandCounts(instruction); !slices.Contains(counts, len(operands)) {
		return 0, nil, &InvalidNumArgumentsError{
			keyword.Position, counts[0], len(operands),
		}
	}

	signature := operandSignature(operands)

	reg := func(i int) uint16 {
		return uint16(operands[i].Value) & 0xF
	}

	imm := func(i int, bits LiteralType) (uint16, error) {
		return fitLiteral(operands[i].Token.Position, operands[i].Value, bits)
	}

	address := func(i int) (uint16, *Operand, error) {
		if operands[i].Type == OPERAND_LABEL {
			return 0, &operands[i], nil
		}

		addr, err := imm(i, LITERAL_ADDRESS)

		return addr, nil, err
	}

	unsupported := func() error {
		received := make([]string, 0, len(operands))

		for _, operand := range operands {
			received = append(received, operand.Token.Value)
		}

		return &UnsupportedOperandsError{
			keyword.Position, keyword.Value, received,
		}
	}

	switch instruction {
	// CLS  |0000    |0000   |1110   |0000   | Clear display
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_CLS:
		return 0x00E0, nil, nil

	// RET  |0000    |0000   |1110   |1110   | Return from subroutine
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_RET:
		return 0x00EE, nil, nil

	// SYS  |0000    |NNN                    | Machine code routine
	// CALL |0010    |NNN                    | Call subroutine
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_SYS, INSTRUCTION_CALL:
		if signature != "n" && signature != "a" {
			return 0, nil, unsupported()
		}

		var scratch uint16 = 0x0000

		if instruction == INSTRUCTION_CALL {
			scratch = 0x2000
		}

		addr, label, err := address(0)

		return scratch | addr, label, err

	// JP   |0001    |NNN                    | Jump
	// JP   |1011    |NNN                    | Jump to NNN + V0
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_JP:
		switch signature {
		case "n", "a":
			addr, label, err := address(0)

			return 0x1000 | addr, label, err

		case "V,n", "V,a":
			if reg(0) != 0 {
				return 0, nil, unsupported()
			}

			addr, label, err := address(1)

			return 0xB000 | addr, label, err
		}

	// SE   |0011    |X      |NN             | Skip if Vx == NN
	// SNE  |0100    |X      |NN             | Skip if Vx != NN
	// SE   |0101    |X      |Y      |0000   | Skip if Vx == Vy
	// SNE  |1001    |X      |Y      |0000   | Skip if Vx != Vy
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_SE, INSTRUCTION_SNE:
		switch signature {
		case "V,n":
			var scratch uint16 = 0x3000

			if instruction == INSTRUCTION_SNE {
				scratch = 0x4000
			}

			nn, err := imm(1, LITERAL_BYTE)

			return scratch | reg(0)<<8 | nn, nil, err

		case "V,V":
			var scratch uint16 = 0x5000

			if instruction == INSTRUCTION_SNE {
				scratch = 0x9000
			}

			return scratch | reg(0)<<8 | reg(1)<<4, nil, nil
		}

	// LD   |0110    |X      |NN             | Vx = NN
	// LD   |1000    |X      |Y      |0000   | Vx = Vy
	// LD   |1010    |NNN                    | I = NNN
	// LD   |1111    |X      |00000111       | Vx = DT
	// LD   |1111    |X      |00001010       | Vx = K
	// LD   |1111    |X      |00010101       | DT = Vx
	// LD   |1111    |X      |00011000       | ST = Vx
	// LD   |1111    |X      |00101001       | I = glyph Vx
	// LD   |1111    |X      |00110011       | [I] = BCD Vx
	// LD   |1111    |X      |01010101       | [I] = V0..Vx
	// LD   |1111    |X      |01100101       | V0..Vx = [I]
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_LD:
		switch signature {
		case "V,n":
			nn, err := imm(1, LITERAL_BYTE)

			return 0x6000 | reg(0)<<8 | nn, nil, err

		case "V,V":
			return 0x8000 | reg(0)<<8 | reg(1)<<4, nil, nil

		case "I,n", "I,a":
			addr, label, err := address(1)

			return 0xA000 | addr, label, err

		case "V,DT":
			return 0xF007 | reg(0)<<8, nil, nil

		case "V,K":
			return 0xF00A | reg(0)<<8, nil, nil

		case "DT,V":
			return 0xF015 | reg(1)<<8, nil, nil

		case "ST,V":
			return 0xF018 | reg(1)<<8, nil, nil

		case "F,V":
			return 0xF029 | reg(1)<<8, nil, nil

		case "B,V":
			return 0xF033 | reg(1)<<8, nil, nil

		case "[I],V":
			return 0xF055 | reg(1)<<8, nil, nil

		case "V,[I]":
			return 0xF065 | reg(0)<<8, nil, nil
		}

	// ADD  |0111    |X      |NN             | Vx += NN
	// ADD  |1000    |X      |Y      |0100   | Vx += Vy
	// ADD  |1111    |X      |00011110       | I += Vx
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_ADD:
		switch signature {
		case "V,n":
			nn, err := imm(1, LITERAL_BYTE)

			return 0x7000 | reg(0)<<8 | nn, nil, err

		case "V,V":
			return 0x8004 | reg(0)<<8 | reg(1)<<4, nil, nil

		case "I,V":
			return 0xF01E | reg(1)<<8, nil, nil
		}

	// OR   |1000    |X      |Y      |0001   | Vx |= Vy
	// AND  |1000    |X      |Y      |0010   | Vx &= Vy
	// XOR  |1000    |X      |Y      |0011   | Vx ^= Vy
	// SUB  |1000    |X      |Y      |0101   | Vx -= Vy
	// SUBN |1000    |X      |Y      |0111   | Vx = Vy - Vx
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_OR,
		INSTRUCTION_AND,
		INSTRUCTION_XOR,
		INSTRUCTION_SUB,
		INSTRUCTION_SUBN:
		if signature != "V,V" {
			return 0, nil, unsupported()
		}

		var scratch uint16 = 0x8000

		switch instruction {
		case INSTRUCTION_OR:
			scratch |= 0x1
		case INSTRUCTION_AND:
			scratch |= 0x2
		case INSTRUCTION_XOR:
			scratch |= 0x3
		case INSTRUCTION_SUB:
			scratch |= 0x5
		case INSTRUCTION_SUBN:
			scratch |= 0x7
		}

		return scratch | reg(0)<<8 | reg(1)<<4, nil, nil

	// SHR  |1000    |X      |Y      |0110   | Vx >>= 1
	// SHL  |1000    |X      |Y      |1110   | Vx <<= 1
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_SHR, INSTRUCTION_SHL:
		var scratch uint16 = 0x8006

		if instruction == INSTRUCTION_SHL {
			scratch = 0x800E
		}

		switch signature {
		case "V":
			return scratch | reg(0)<<8, nil, nil

		case "V,V":
			return scratch | reg(0)<<8 | reg(1)<<4, nil, nil

		case "a", "a,V":
			return 0, nil, &InvalidRegisterError{operands[0].Token.Position}
		}

	// RND  |1100    |X      |NN             | Vx = random & NN
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_RND:
		if signature != "V,n" {
			return 0, nil, unsupported()
		}

		nn, err := imm(1, LITERAL_BYTE)

		return 0xC000 | reg(0)<<8 | nn, nil, err

	// DRW  |1101    |X      |Y      |N      | Draw N byte sprite at Vx, Vy
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_DRW:
		if signature != "V,V,n" {
			return 0, nil, unsupported()
		}

		n, err := imm(2, LITERAL_NIBBLE)

		return 0xD000 | reg(0)<<8 | reg(1)<<4 | n, nil, err

	// SKP  |1110    |X      |10011110       | Skip if key Vx down
	// SKNP |1110    |X      |10100001       | Skip if key Vx up
	// ---- [ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ _ ]
	case INSTRUCTION_SKP, INSTRUCTION_SKNP:
		switch signature {
		case "V":
			if instruction == INSTRUCTION_SKP {
				return 0xE09E | reg(0)<<8, nil, nil
			}

			return 0xE0A1 | reg(0)<<8, nil, nil

		case "a":
			return 0, nil, &InvalidRegisterError{operands[0].Token.Position}
		}
	}

	return 0, nil, unsupported()
}

func tokenizeLine(line string, cursor Cursor) (tokens []Token, errs []error) {
	var builder strings.Builder
	var tokenStart int = 0
	var tokenType TokenType = TOKEN_NONE

	var escaped bool = false
	var pendingComma bool = false
	var commaPosition Cursor

	cursor.Size = int64(len(line))

	flushToken := func() {
		if builder.Len() > 0 {
			tokens = append(tokens, Token{
				Type: tokenType,
				Position: Cursor{
					Line:     cursor.Line,
					Column:   tokenStart,
					Byte:     cursor.Byte + int64(tokenStart-1),
					Size:     int64(builder.Len()),
					LineByte: cursor.LineByte,
				},
				Value: builder.String(),
			})

			builder.Reset()
			pendingComma = false
		}

		tokenType = TOKEN_NONE
	}

	for column, char := range line {
		cursor.Column = column + 1

		if tokenType == TOKEN_NONE {
			tokenStart = cursor.Column
		}

		if char > unicode.MaxASCII {
			errs = append(errs, &OversizedCharacterError{cursor})
		}

		// String Literal (contents)
		if tokenType == TOKEN_STRING {
			builder.WriteRune(char)

			switch {
			case escaped:
				escaped = false
			case char == '\\':
				escaped = true
			case char == '"':
				flushToken()
			}

			continue
		}

		var flush bool = false
		var skip bool = false
		var comma bool = false

		switch {
		// Whitespace
		case unicode.IsSpace(char):
			if tokenType == TOKEN_NONE {
				continue
			}

			flush = true

		// Comments
		case char == ';':
			flush = true
			skip = true

		// Assembler Directives
		case char == '.':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_DIRECTIVE
			} else {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Operand Separator
		case char == ',':
			if builder.Len() == 0 && (pendingComma || len(tokens) == 0) {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

			flush = true
			comma = true

		// Label Declaration (i.e. loop:)
		case char == ':':
			if tokenType == TOKEN_IDENT && len(tokens) == 0 {
				tokenType = TOKEN_LABEL
			} else {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

			flush = true

		// Prefixed Literal (i.e. $2A, %1010, #42)
		case char == '$' || char == '%' || char == '#':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_LITERAL
			} else {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// String Literal (opening quote)
		case char == '"':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_STRING
			} else {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Numeric Literal
		case unicode.IsDigit(char):
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_LITERAL
			}

		// Numeric Sign
		case char == '-':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_LITERAL
			} else if tokenType != TOKEN_LITERAL {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Underscore'd Identifier
		case char == '_':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_IDENT
			} else if tokenType != TOKEN_IDENT {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Indirect Index (i.e. [I])
		case char == '[':
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_IDENT
			} else {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		case char == ']':
			if tokenType != TOKEN_IDENT {
				errs = append(errs, &UnexpectedCharacterError{cursor, char})
			}

		// Identifier
		case unicode.IsLetter(char):
			if tokenType == TOKEN_NONE {
				tokenType = TOKEN_IDENT
			}

		default:
			errs = append(errs, &UnexpectedCharacterError{cursor, char})
		}

		if flush {
			flushToken()
		} else if !skip {
			builder.WriteRune(char)
		}

		if comma {
			pendingComma = true
			commaPosition = cursor
		}

		if skip {
			break
		}
	}

	if tokenType == TOKEN_STRING {
		errs = append(errs, &InvalidStringError{cursor})
	}

	flushToken()

	if pendingComma {
		errs = append(errs, &UnexpectedCharacterError{commaPosition, ','})
	}

	return tokens, errs
}

// Assemble reads CHIP-8 assembly source and returns the program image as it
// should be loaded at 0x200. When symtable is non-nil it receives the address
// of every assembled line and label.
func Assemble(input io.Reader, symtable *SymTable) (result []byte, errs []error) {
	type LabelRef struct {
		Label    string
		Addr     uint16
		Position Cursor
	}

	type FillRef struct {
		Label    string
		Addr     uint16
		Position Cursor
	}

	var labels = make(map[string]uint16)
	var labelRefs []LabelRef
	var fillRefs []FillRef

	var memory [machine.MEMORY_SIZE]byte
	var program int = machine.PROGRAM_START
	var end int = machine.PROGRAM_START

	var scanner = bufio.NewScanner(input)
	var cursor = Cursor{Line: 1, Column: 0, Size: 0, Byte: 0}

	errs = make([]error, 0)

	image := func() []byte {
		return append([]byte(nil), memory[machine.PROGRAM_START:end]...)
	}

	emit := func(position Cursor, values ...byte) bool {
		if program+len(values) > machine.MEMORY_SIZE {
			errs = append(errs, &OversizedBinaryError{position})
			return false
		}

		copy(memory[program:], values)
		program += len(values)

		if program > end {
			end = program
		}

		return true
	}

	record := func() {
		if symtable != nil {
			symtable.Symbols[uint16(program)] = cursor.LineByte
		}
	}

	nextLine := func(line string) {
		cursor.Line++
		cursor.Byte += int64(len(line) + 1)
		cursor.LineByte += int64(len(line) + 1)
	}

	// Process:
	// - Parse line
	// - Assemble line
	for scanner.Scan() {
		line := scanner.Text()

		tokens, lineErrs := tokenizeLine(line, cursor)

		// Pass any potential assembler errors if we already had parser errors
		if len(lineErrs) > 0 {
			errs = append(errs, lineErrs...)
			nextLine(line)
			continue
		}

		if len(tokens) == 0 {
			nextLine(line)
			continue
		}

		// Assemble line
		// - Write instruction bytes to memory
		// - Save label refs for unknown labels
		// - Type check instruction arguments
		var label *Token = nil
		var directive DirectiveType
		var instruction InstructionType
		var keyword *Token = nil
		var operands []Token

		statement := tokens

		if tokens[0].Type == TOKEN_LABEL {
			label = &tokens[0]
			statement = tokens[1:]
		} else if tokens[0].Type == TOKEN_IDENT &&
			parseInstruction(tokens[0].Value) == INSTRUCTION_INVALID {
			label = &tokens[0]
			statement = tokens[1:]
		}

		if label != nil {
			if _, exists := labels[label.Value]; !exists {
				labels[label.Value] = uint16(program)
			} else {
				errs = append(
					errs, &RedeclaredLabelError{label.Position, label.Value},
				)
			}

			// No need to assemble label-only statements
			if len(statement) == 0 {
				nextLine(line)
				continue
			}
		}

		keyword = &statement[0]
		operands = statement[1:]

		switch keyword.Type {
		case TOKEN_DIRECTIVE:
			directive = parseDirective(keyword.Value)
		case TOKEN_IDENT:
			instruction = parseInstruction(keyword.Value)
		default:
			errs = append(
				errs,
				&InvalidOperandError{
					keyword.Position,
					[]TokenType{TOKEN_IDENT, TOKEN_DIRECTIVE},
					keyword.Type,
				},
			)

			nextLine(line)
			continue
		}

		if directive == DIRECTIVE_INVALID && instruction == INSTRUCTION_INVALID {
			errs = append(
				errs,
				&UnknownIdentifierError{keyword.Position, keyword.Value},
			)

			nextLine(line)
			continue
		}

		if directive == DIRECTIVE_END {
			if count := len(operands); count != 0 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 0, count},
				)
			}

			break
		}

		switch directive {
		// .ORG $addr
		case DIRECTIVE_ORG:
			if count := len(operands); count != 1 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
				)

				break
			}

			if operands[0].Type != TOKEN_LITERAL {
				errs = append(
					errs,
					&InvalidOperandError{
						operands[0].Position,
						[]TokenType{TOKEN_LITERAL},
						operands[0].Type,
					},
				)

				break
			}

			literal, err := parseLiteral(&operands[0], LITERAL_WORD)

			if err != nil {
				errs = append(errs, err)
				break
			}

			if literal < machine.PROGRAM_START || literal >= machine.MEMORY_SIZE {
				errs = append(
					errs,
					&InvalidOriginError{operands[0].Position, int(literal)},
				)

				break
			}

			program = int(literal)

		// .DB #, ...
		case DIRECTIVE_DB:
			if len(operands) == 0 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, 0},
				)

				break
			}

			record()

			for i := range operands {
				if operands[i].Type != TOKEN_LITERAL {
					errs = append(
						errs,
						&InvalidOperandError{
							operands[i].Position,
							[]TokenType{TOKEN_LITERAL},
							operands[i].Type,
						},
					)

					continue
				}

				literal, err := parseLiteral(&operands[i], LITERAL_BYTE)

				if err != nil {
					errs = append(errs, err)
				}

				if !emit(operands[i].Position, byte(literal)) {
					return image(), errs
				}
			}

		// .DW #|label, ...
		case DIRECTIVE_DW:
			if len(operands) == 0 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, 0},
				)

				break
			}

			record()

			for i := range operands {
				var literal uint16

				switch operands[i].Type {
				case TOKEN_LITERAL:
					var err error

					literal, err = parseLiteral(&operands[i], LITERAL_WORD)

					if err != nil {
						errs = append(errs, err)
					}

				case TOKEN_IDENT:
					if addr, exists := labels[operands[i].Value]; exists {
						literal = addr
					} else {
						fillRefs = append(
							fillRefs,
							FillRef{
								operands[i].Value,
								uint16(program),
								operands[i].Position,
							},
						)
					}

				default:
					errs = append(
						errs,
						&InvalidOperandError{
							operands[i].Position,
							[]TokenType{TOKEN_LITERAL, TOKEN_IDENT},
							operands[i].Type,
						},
					)
				}

				if !emit(operands[i].Position, byte(literal>>8), byte(literal)) {
					return image(), errs
				}
			}

		// .TEXT "..."
		case DIRECTIVE_TEXT:
			if count := len(operands); count != 1 {
				errs = append(
					errs, &InvalidNumArgumentsError{keyword.Position, 1, count},
				)

				break
			}

			if operands[0].Type != TOKEN_STRING {
				errs = append(
					errs,
					&InvalidOperandError{
						operands[0].Position,
						[]TokenType{TOKEN_STRING},
						operands[0].Type,
					},
				)

				break
			}

			s, err := strconv.Unquote(operands[0].Value)

			if err != nil {
				errs = append(errs, &InvalidStringError{operands[0].Position})
				break
			}

			record()

			if !emit(operands[0].Position, []byte(s)...) {
				return image(), errs
			}
		}

		if instruction == INSTRUCTION_INVALID {
			nextLine(line)
			continue
		}

		parsed := make([]Operand, 0, len(operands))
		operandErrs := len(errs)

		for i := range operands {
			operand, err := parseOperand(&operands[i])

			if err != nil {
				errs = append(errs, err)
				continue
			}

			parsed = append(parsed, operand)
		}

		if len(errs) > operandErrs {
			nextLine(line)
			continue
		}

		scratch, ref, err := assembleInstruction(instruction, keyword, parsed)

		if err != nil {
			errs = append(errs, err)
			nextLine(line)
			continue
		}

		if ref != nil {
			labelRefs = append(
				labelRefs,
				LabelRef{ref.Token.Value, uint16(program), ref.Token.Position},
			)
		}

		record()

		if !emit(keyword.Position, byte(scratch>>8), byte(scratch)) {
			return image(), errs
		}

		nextLine(line)
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}

	// Label
	// - Validate and resolve label references
	// - Add labels to symbol table
	for _, ref := range labelRefs {
		addr, exists := labels[ref.Label]

		if !exists {
			errs = append(errs, &UnknownLabelError{ref.Position, ref.Label})
			continue
		}

		if addr > machine.ADDRESS_MASK {
			errs = append(
				errs,
				&OversizedLabelError{
					ref.Position, machine.ADDRESS_MASK, int64(addr),
				},
			)

			continue
		}

		scratch := encoding.Word(memory[:], ref.Addr)
		encoding.PutWord(memory[:], ref.Addr, scratch|addr)
	}

	if symtable != nil {
		for label, addr := range labels {
			symtable.Labels[addr] = label
		}
	}

	// Fill
	// - Validate and resolve .DW directives whose arguments were unresolved
	//   label references
	for _, ref := range fillRefs {
		addr, exists := labels[ref.Label]

		if !exists {
			errs = append(errs, &UnknownLabelError{ref.Position, ref.Label})
			continue
		}

		encoding.PutWord(memory[:], ref.Addr, addr)
	}

	return image(), errs
}
