package service

import (
	"math/rand"
	"strconv"

	"github.com/spaolacci/murmur3"

	"match-service/internal/model"
)

var (
	maleAliases   = []string{"AnonGuy", "MisterX", "BroChat", "DudeAnon"}
	femaleAliases = []string{"AnonGal", "MissY", "SisChat", "LadyAnon"}
)

// PseudonymGenerator produces display aliases. The base name is picked from
// the attribute's pool by a murmur3 bucket of the user id, so a user keeps
// the same base name across cycles; the numeric suffix is fresh every time.
type PseudonymGenerator struct{}

func NewPseudonymGenerator() *PseudonymGenerator {
	return &PseudonymGenerator{}
}

func (g *PseudonymGenerator) For(userID int64, attr model.Attribute) string {
	pool := maleAliases
	if attr == model.AttributeFemale {
		pool = femaleAliases
	}
	bucket := murmur3.Sum32([]byte(strconv.FormatInt(userID, 10))) % uint32(len(pool))
	return pool[bucket] + strconv.Itoa(100+rand.Intn(900))
}
