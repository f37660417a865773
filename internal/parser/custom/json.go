package custom

import (
	"strings"

	"github.com/standardbeagle/polyscan/internal/types"
)

// ParseJSON is a recursive-descent JSON scanner that keeps exact
// start/end positions for every value, which the stock decoder
// discards. Malformed input attaches an error to the nearest
// enclosing node and scanning continues where possible.
func ParseJSON(source []byte) *types.CustomNode {
	s := &jsonScanner{src: source}
	s.skipWhitespace()

	root := types.NewCustomNode("document", types.Point{}, types.Point{})
	root.EndByte = uint(len(source))
	root.EndPoint = s.endOfInput()

	if s.eof() {
		root.Error = "empty input"
		return root
	}

	value := s.parseValue()
	if value != nil {
		root.AddChild(value)
	}
	s.skipWhitespace()
	if !s.eof() {
		trailing := s.nodeHere("trailing")
		trailing.Error = "trailing content after top-level value"
		root.AddChild(trailing)
	}
	return root
}

type jsonScanner struct {
	src  []byte
	pos  uint
	row  uint32
	col  uint32
	// depth caps recursion on adversarial nesting.
	depth int
}

const maxJSONDepth = 512

func (s *jsonScanner) eof() bool { return s.pos >= uint(len(s.src)) }

func (s *jsonScanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *jsonScanner) advance() byte {
	b := s.src[s.pos]
	s.pos++
	if b == '\n' {
		s.row++
		s.col = 0
	} else {
		s.col++
	}
	return b
}

func (s *jsonScanner) point() types.Point {
	return types.Point{Row: s.row, Column: s.col}
}

func (s *jsonScanner) endOfInput() types.Point {
	saved := *s
	for !s.eof() {
		s.advance()
	}
	end := s.point()
	*s = saved
	return end
}

func (s *jsonScanner) skipWhitespace() {
	for !s.eof() {
		switch s.peek() {
		case ' ', '\t', '\n', '\r':
			s.advance()
		default:
			return
		}
	}
}

func (s *jsonScanner) nodeHere(kind string) *types.CustomNode {
	n := types.NewCustomNode(kind, s.point(), s.point())
	n.StartByte, n.EndByte = s.pos, s.pos
	return n
}

func (s *jsonScanner) finish(n *types.CustomNode) *types.CustomNode {
	n.EndPoint = s.point()
	n.EndByte = s.pos
	return n
}

func (s *jsonScanner) parseValue() *types.CustomNode {
	s.skipWhitespace()
	if s.eof() {
		n := s.nodeHere("value")
		n.Error = "unexpected end of input"
		return n
	}
	if s.depth >= maxJSONDepth {
		n := s.nodeHere("value")
		n.Error = "nesting too deep"
		return n
	}

	switch c := s.peek(); {
	case c == '{':
		return s.parseObject()
	case c == '[':
		return s.parseArray()
	case c == '"':
		return s.parseString("string")
	case c == 't' || c == 'f':
		return s.parseKeyword("boolean", "true", "false")
	case c == 'n':
		return s.parseKeyword("null", "null")
	case c == '-' || (c >= '0' && c <= '9'):
		return s.parseNumber()
	default:
		n := s.nodeHere("value")
		s.advance()
		s.finish(n)
		n.Error = "unexpected character"
		return n
	}
}

func (s *jsonScanner) parseObject() *types.CustomNode {
	node := s.nodeHere("object")
	s.depth++
	defer func() { s.depth-- }()
	s.advance() // '{'

	s.skipWhitespace()
	if s.peek() == '}' {
		s.advance()
		return s.finish(node)
	}

	for !s.eof() {
		s.skipWhitespace()
		if s.peek() != '"' {
			node.Error = "expected object key"
			break
		}
		pair := s.nodeHere("pair")
		key := s.parseString("key")
		pair.AddChild(key)
		if name, ok := key.Metadata["value"].(string); ok {
			pair.Metadata["key"] = name
		}

		s.skipWhitespace()
		if s.peek() != ':' {
			pair.Error = "expected ':' after key"
			s.finish(pair)
			node.AddChild(pair)
			break
		}
		s.advance()

		value := s.parseValue()
		pair.AddChild(value)
		s.finish(pair)
		node.AddChild(pair)

		s.skipWhitespace()
		switch s.peek() {
		case ',':
			s.advance()
			continue
		case '}':
			s.advance()
			return s.finish(node)
		default:
			node.Error = "expected ',' or '}' in object"
		}
		break
	}
	if node.Error == "" && s.eof() {
		node.Error = "unterminated object"
	}
	return s.finish(node)
}

func (s *jsonScanner) parseArray() *types.CustomNode {
	node := s.nodeHere("array")
	s.depth++
	defer func() { s.depth-- }()
	s.advance() // '['

	s.skipWhitespace()
	if s.peek() == ']' {
		s.advance()
		return s.finish(node)
	}

	for !s.eof() {
		value := s.parseValue()
		node.AddChild(value)

		s.skipWhitespace()
		switch s.peek() {
		case ',':
			s.advance()
			continue
		case ']':
			s.advance()
			return s.finish(node)
		default:
			node.Error = "expected ',' or ']' in array"
		}
		break
	}
	if node.Error == "" && s.eof() {
		node.Error = "unterminated array"
	}
	return s.finish(node)
}

func (s *jsonScanner) parseString(kind string) *types.CustomNode {
	node := s.nodeHere(kind)
	s.advance() // opening quote
	var sb strings.Builder
	for !s.eof() {
		c := s.advance()
		if c == '\\' {
			if !s.eof() {
				sb.WriteByte(s.advance())
			}
			continue
		}
		if c == '"' {
			node.Metadata["value"] = sb.String()
			return s.finish(node)
		}
		sb.WriteByte(c)
	}
	node.Metadata["value"] = sb.String()
	node.Error = "unterminated string"
	return s.finish(node)
}

func (s *jsonScanner) parseNumber() *types.CustomNode {
	node := s.nodeHere("number")
	for !s.eof() {
		c := s.peek()
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			s.advance()
			continue
		}
		break
	}
	s.finish(node)
	node.Metadata["value"] = string(s.src[node.StartByte:node.EndByte])
	return node
}

func (s *jsonScanner) parseKeyword(kind string, words ...string) *types.CustomNode {
	node := s.nodeHere(kind)
	for _, word := range words {
		if strings.HasPrefix(string(s.src[s.pos:]), word) {
			for range word {
				s.advance()
			}
			s.finish(node)
			node.Metadata["value"] = word
			return node
		}
	}
	s.advance()
	s.finish(node)
	node.Error = "invalid literal"
	return node
}
