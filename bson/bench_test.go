package bson

import (
	"strconv"
	"testing"
)

func benchTree() *Value {
	items := make([]*Value, 0, 50)
	for i := 0; i < 50; i++ {
		items = append(items, Doc(
			E("id", Int32(int32(i))),
			E("name", String("item-"+strconv.Itoa(i))),
			E("price", Double(float64(i)*1.25)),
			E("tags", Array(String("a"), String("b"))),
			E("active", Bool(i%2 == 0)),
		))
	}
	return Doc(E("count", Int64(50)), E("items", Array(items...)))
}

func BenchmarkEncode(b *testing.B) {
	tree := benchTree()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Encode(tree); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecode(b *testing.B) {
	raw, err := Encode(benchTree())
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(raw)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(raw); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkValidate(b *testing.B) {
	raw, _ := Encode(benchTree())
	b.SetBytes(int64(len(raw)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Validate(raw); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkToJSON(b *testing.B) {
	doc, _ := FromTree(benchTree())
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := doc.JSON(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParseJSON(b *testing.B) {
	doc, _ := FromTree(benchTree())
	text, _ := doc.JSON()
	b.SetBytes(int64(len(text)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ParseJSON(text); err != nil {
			b.Fatal(err)
		}
	}
}
