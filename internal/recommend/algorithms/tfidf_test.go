// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package algorithms

import (
	"fmt"
	"math"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercase and punctuation", "Gaming Laptop, 16GB RAM!", []string{"gaming", "laptop", "16gb", "ram"}},
		{"stopwords and short", "a laptop for the office", []string{"laptop", "office"}},
		{"vietnamese folding", "Điện thoại siêu mỏng", []string{"dien", "thoai", "sieu", "mong"}},
		{"empty", "  ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMetadataTerms(t *testing.T) {
	got := MetadataTerms([]string{"Electronics", "Laptops"}, []string{"#Gaming", "sale"})
	want := []string{"cat:electronics", "cat:electronics/laptops", "tag:gaming", "tag:sale"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("MetadataTerms() = %v, want %v", got, want)
	}
}

func doc(key, text string, categories ...string) Document {
	return Document{Key: key, Terms: append(Tokenize(text), MetadataTerms(categories, nil)...)}
}

func TestBuildTFIDF(t *testing.T) {
	docs := []Document{
		doc("product:1", "thin gaming laptop with rgb keyboard", "electronics", "laptops"),
		doc("product:2", "gaming laptop with fast gpu", "electronics", "laptops"),
		doc("product:3", "stainless steel kitchen knife", "home", "kitchen"),
		doc("product:4", "ceramic kitchen pan", "home", "kitchen"),
		doc("product:5", "", ""),
	}
	m := BuildTFIDF(docs, 64)

	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if _, ok := m.Vectors["product:5"]; ok {
		t.Error("empty document should have no vector")
	}

	laptops := m.Vectors["product:1"].Dot(m.Vectors["product:2"])
	cross := m.Vectors["product:1"].Dot(m.Vectors["product:3"])
	if laptops <= cross {
		t.Errorf("sim(laptop, laptop) = %f, want > sim(laptop, knife) = %f", laptops, cross)
	}
	if cross != 0 {
		t.Errorf("sim(laptop, knife) = %f, want 0 (no shared terms)", cross)
	}
	if self := m.Vectors["product:3"].Dot(m.Vectors["product:3"]); math.Abs(self-1) > 1e-9 {
		t.Errorf("self similarity = %f, want 1", self)
	}
}

func TestBuildTFIDF_DropsUbiquitousTerms(t *testing.T) {
	m := BuildTFIDF([]Document{
		{Key: "a", Terms: []string{"shop", "laptop"}},
		{Key: "b", Terms: []string{"shop", "phone"}},
	}, 0)
	for _, term := range m.Vocabulary {
		if term == "shop" {
			t.Error("term present in every document kept in vocabulary")
		}
	}
}

func TestBuildTFIDF_MaxTerms(t *testing.T) {
	m := BuildTFIDF([]Document{
		{Key: "a", Terms: []string{"t1", "t2", "t3", "t4", "t1"}},
		{Key: "b", Terms: []string{"x"}},
	}, 2)
	v := m.Vectors["a"]
	if v.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", v.Len())
	}
	if math.Abs(v.Norm()-1) > 1e-9 {
		t.Errorf("Norm() = %f, want 1", v.Norm())
	}
}

func TestTFIDF_ValidateRejectsBadVectors(t *testing.T) {
	m := &TFIDF{
		Documents: 2,
		Vectors: map[string]SparseVector{
			"a": {Terms: []int32{0}, Weights: []float64{0.5}},
		},
	}
	if err := m.Validate(); err == nil {
		t.Error("expected error for non-unit vector")
	}

	empty := &TFIDF{Documents: 3, Vectors: map[string]SparseVector{}}
	if err := empty.Validate(); err == nil {
		t.Error("expected error for corpus without vectors")
	}
}
