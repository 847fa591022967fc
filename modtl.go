// Package modtl translates game-mod localization strings through LLM
// providers without damaging the placeholders, markup and format codes
// embedded in them.
//
// Each extracted string is masked by package protect, sent to a provider,
// checked and repaired by package placeholder, then restored and verified
// for structural integrity. Provider failures are retried according to a
// RetryPolicy that honours server-supplied retry hints.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/modtl"
//	    "github.com/ZaguanLabs/modtl/cache"
//	    "github.com/ZaguanLabs/modtl/processor"
//	    "github.com/ZaguanLabs/modtl/provider"
//	)
//
//	func main() {
//	    p := provider.NewOpenAIProvider(provider.OpenAIConfig{
//	        APIKey: os.Getenv("OPENAI_API_KEY"),
//	    })
//
//	    t := modtl.NewTranslator("ko_KR", modtl.NewRetryableProvider(p, modtl.DefaultRetryPolicy()),
//	        modtl.WithCache(cache.NewInMemoryCache(3600)),
//	        modtl.WithProcessor(processor.NewJSONProcessor()),
//	    )
//
//	    result, err := t.Process(context.Background(), `{"ui.start": "Start {0}"}`, "json")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(result.Content)
//	    for _, f := range result.Failures {
//	        log.Println(f)
//	    }
//	}
package modtl
