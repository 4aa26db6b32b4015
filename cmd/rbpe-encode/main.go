package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gobpe/rbpe/rbpe"
)

func main() {
	tokPath := flag.String("tokenizer", "", "path to a trained tokenizer file")
	inputPath := flag.String("input", "", "path to the text to encode (default: stdin)")
	decode := flag.Bool("decode", false, "read whitespace-separated ids from -input and print the decoded bytes instead")
	flag.Parse()

	if *tokPath == "" {
		log.Fatal("rbpe-encode: -tokenizer is required")
	}

	tok := rbpe.New(0, nil)
	if err := tok.Load(*tokPath); err != nil {
		log.Fatalf("rbpe-encode: load: %v", err)
	}

	input := os.Stdin
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			log.Fatalf("rbpe-encode: open input: %v", err)
		}
		defer f.Close()
		input = f
	}

	data, err := io.ReadAll(input)
	if err != nil {
		log.Fatalf("rbpe-encode: read input: %v", err)
	}

	if *decode {
		ids, err := parseIDs(data)
		if err != nil {
			log.Fatalf("rbpe-encode: parse ids: %v", err)
		}
		os.Stdout.Write(tok.Decode(ids))
		return
	}

	for _, id := range tok.Encode(data) {
		fmt.Println(id)
	}
}

func parseIDs(data []byte) ([]int, error) {
	var ids []int
	var cur int
	var inNum bool
	for _, b := range data {
		switch {
		case b >= '0' && b <= '9':
			cur = cur*10 + int(b-'0')
			inNum = true
		default:
			if inNum {
				ids = append(ids, cur)
				cur, inNum = 0, false
			}
		}
	}
	if inNum {
		ids = append(ids, cur)
	}
	return ids, nil
}
