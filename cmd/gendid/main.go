// cmd/gendid prints freshly generated did:key identifiers.
package main

import (
	"flag"
	"fmt"
	"log"

	"Vouch/internal/did"
)

func main() {
	n := flag.Int("n", 1, "number of DIDs to generate")
	flag.Parse()

	gen := did.NewGenerator()
	for i := 0; i < *n; i++ {
		d, err := gen.Generate()
		if err != nil {
			log.Fatalf("Failed to generate DID: %v", err)
		}
		fmt.Println(d)
	}
}
