package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/litarchive/internal/collect"
	"github.com/hyperifyio/litarchive/internal/fetch"
)

func main() {
	encoding := flag.String("encoding", fetch.DefaultEncoding, "page encoding label or 'auto'")
	extract := flag.Bool("extract", false, "also run the chosen extractor")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.DefaultContextLogger = &log.Logger
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: debuglayout [-encoding koi8-r] [-extract] [-v] <collection-url>")
		os.Exit(2)
	}
	target := flag.Arg(0)

	client := fetch.New()
	client.Encoding = *encoding
	client.InsecureTLS = true
	client.ForceHTTP = true
	client.Retries = 1
	c := collect.New(client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	strategy, links, err := c.Detect(ctx, target)
	fmt.Println("err:", err)
	fmt.Println("strategy:", strategy)
	for i, l := range links {
		fmt.Printf("%d. %s -> %s\n", i+1, l.Text, l.Href)
	}
	if !*extract || err != nil {
		return
	}
	for i, it := range c.Collection(ctx, target) {
		fmt.Printf("[%d] %s (%d runes)\n", i+1, it.ItemTitle, len([]rune(it.Text)))
	}
}
