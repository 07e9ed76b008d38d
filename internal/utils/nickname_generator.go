package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"Friendly", "Thrifty", "Handy", "Local", "Savvy",
	"Honest", "Tidy", "Sunny", "Lucky", "Cozy",
	"Quick", "Careful", "Cheerful", "Steady", "Neighborly",
}

var nouns = []string{
	"Trader", "Collector", "Bargainer", "Maker", "Fixer",
	"Browser", "Seller", "Swapper", "Finder", "Tinkerer",
	"Gardener", "Crafter", "Neighbor", "Picker", "Curator",
}

// GenerateNickname returns a display name for accounts registered without
// one, formatted "Adjective_Noun_NNNN"
func GenerateNickname() (string, error) {
	adj, err := pick(adjectives)
	if err != nil {
		return "", fmt.Errorf("pick adjective: %w", err)
	}
	noun, err := pick(nouns)
	if err != nil {
		return "", fmt.Errorf("pick noun: %w", err)
	}
	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generate suffix: %w", err)
	}
	return fmt.Sprintf("%s_%s_%04d", adj, noun, suffix.Int64()), nil
}

func pick(words []string) (string, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return "", err
	}
	return words[idx.Int64()], nil
}
