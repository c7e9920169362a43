package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCourseCodes(t *testing.T) {
	e := NewExtractor(nil)

	got := e.Extract("prerequisites for BITZ 3113 and BAXI2214")
	require.Contains(t, got, KindCourseCode)
	assert.Equal(t, []string{"BITZ 3113", "BAXI2214"}, got[KindCourseCode])
}

func TestExtractEmailAndPhone(t *testing.T) {
	e := NewExtractor(nil)

	got := e.Extract("email dean@utem.edu.my or call +60 6-270 1000 or 06-2701000")
	assert.Equal(t, []string{"dean@utem.edu.my"}, got[KindEmail])
	require.Contains(t, got, KindPhone)
	assert.NotEmpty(t, got[KindPhone])
}

func TestExtractDatesAndMoney(t *testing.T) {
	e := NewExtractor(nil)

	got := e.Extract("registration closes 15/7/2026 or 2026-07-15, fee RM 1,250.00")
	assert.Equal(t, []string{"15/7/2026", "2026-07-15"}, got[KindDate])
	assert.Equal(t, []string{"RM 1,250.00"}, got[KindMoney])
}

func TestExtractOmitsEmptyKinds(t *testing.T) {
	e := NewExtractor(nil)

	got := e.Extract("what programs do you offer")
	assert.Empty(t, got)
	assert.NotContains(t, got, KindEmail)
}

func TestExtractDeduplicates(t *testing.T) {
	e := NewExtractor(nil)

	got := e.Extract("BITZ 3113 twice: BITZ 3113")
	assert.Equal(t, []string{"BITZ 3113"}, got[KindCourseCode])
}
