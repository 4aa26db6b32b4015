package main

import (
	"flag"
	"log"
	"os"

	"github.com/gobpe/rbpe/rbpe"
)

func main() {
	corpusPath := flag.String("corpus", "", "path to the training corpus")
	outPath := flag.String("out", "tokenizer.bpe", "path to write the trained tokenizer")
	vocabSize := flag.Int("vocab-size", 2048, "target vocabulary size, including the 256 single-byte ids")
	flag.Parse()

	if *corpusPath == "" {
		log.Fatal("rbpe-train: -corpus is required")
	}

	corpus, err := os.ReadFile(*corpusPath)
	if err != nil {
		log.Fatalf("rbpe-train: read corpus: %v", err)
	}

	tok := rbpe.New(0, nil)
	if err := tok.Train(corpus, *vocabSize); err != nil {
		log.Fatalf("rbpe-train: train: %v", err)
	}

	if err := tok.Save(*outPath); err != nil {
		log.Fatalf("rbpe-train: save: %v", err)
	}

	log.Printf("trained vocab_size=%d, wrote %s", tok.VocabSize(), *outPath)
}
