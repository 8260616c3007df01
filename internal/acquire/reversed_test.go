package acquire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var detectKeywords = []string{
	"Trabalhadores", "Detalhe", "Guia", "Empregador", "FECHAMENTO", "RESUMO",
}

func reverseLine(s string) string {
	return reverseRunes(s)
}

func TestIsReversed(t *testing.T) {
	t.Run("inverted text detected", func(t *testing.T) {
		text := reverseLine("Detalhe da Guia") + "\n" + reverseLine("Qtd Trabalhadores: 14")
		assert.True(t, IsReversed(text, detectKeywords))
	})

	t.Run("normal text not touched", func(t *testing.T) {
		text := "Detalhe da Guia\nQtd Trabalhadores: 14"
		assert.False(t, IsReversed(text, detectKeywords))
	})

	t.Run("single reversed hit is not enough", func(t *testing.T) {
		text := reverseLine("RESUMO DO MOVIMENTO") + "\nsem mais nada"
		assert.False(t, IsReversed(text, detectKeywords))
	})
}

func TestUnreverse(t *testing.T) {
	original := []string{
		"RESUMO DO FECHAMENTO DO MOVIMENTO PARA O TOMADOR DE SERVICO",
		"Qtd Trabalhadores: 14",
		"Empregador: CONSTRUTORA EXEMPLO LTDA CNPJ 12.345.678/0001-90",
	}
	// The driver emits it inverted: runes flipped per line, lines in reverse
	// order.
	var inverted []string
	for i := len(original) - 1; i >= 0; i-- {
		inverted = append(inverted, reverseLine(original[i]))
	}

	out := Unreverse(strings.Join(inverted, "\n"))
	for _, line := range original {
		assert.Contains(t, out, line)
	}
}

func TestUnreverseCoalescesShortLines(t *testing.T) {
	// Fragmented short lines belong to one sentence and come back joined.
	inverted := strings.Join([]string{
		reverseLine("Trabalhadores: 14"),
		reverseLine("Qtd"),
	}, "\n")

	out := Unreverse(inverted)
	require.Equal(t, "Qtd Trabalhadores: 14", out)
}
