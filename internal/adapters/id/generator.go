package id

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.New(21)
	if err != nil {
		return prefix + "_fallback"
	}
	return prefix + "_" + id
}

func (g *Generator) GenerateVerbID() string {
	return g.generate("vrb")
}

func (g *Generator) GenerateConjugationID() string {
	return g.generate("cj")
}

func (g *Generator) GenerateSentenceID() string {
	return g.generate("snt")
}

func (g *Generator) GenerateProblemID() string {
	return g.generate("prb")
}

func (g *Generator) GenerateRequestID() string {
	return g.generate("req")
}

func (g *Generator) GenerateAPIKeyID() string {
	return g.generate("key")
}

func (g *Generator) GenerateMessageID() string {
	return g.generate("msg")
}
