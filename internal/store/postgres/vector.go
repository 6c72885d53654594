package postgres

import (
	"fmt"
	"strconv"
	"strings"
)

// encodeVectorLiteral renders a float32 slice as a pgvector text literal
// suitable for a $N::vector parameter.
func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}

// parseVectorLiteral is the inverse of encodeVectorLiteral.
func parseVectorLiteral(lit string) ([]float32, error) {
	lit = strings.TrimSpace(lit)
	if len(lit) < 2 || lit[0] != '[' || lit[len(lit)-1] != ']' {
		if len(lit) > 32 {
			lit = lit[:32]
		}
		return nil, fmt.Errorf("malformed vector literal %q", lit)
	}
	body := lit[1 : len(lit)-1]
	if body == "" {
		return nil, fmt.Errorf("empty vector literal")
	}
	parts := strings.Split(body, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("vector component %d: %w", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}
