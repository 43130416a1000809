// Package ingres embeds the INGRES groundwater chatbot pipelines in a Go
// program without running the HTTP service.
//
// The client wires the same intent classifier and response generator the
// server uses. Both calls always return a result: failures surface as the
// fixed fallback values, never as errors.
//
//	client, _ := ingres.New(ctx,
//	    ingres.WithGroq(os.Getenv("GROQ_API_KEY")),
//	    ingres.WithExamples("config/examples/intent.json", "config/examples/response.json"),
//	)
//
//	res := client.DetectIntent(ctx, "Compare extraction in Punjab and Haryana")
//	fmt.Println(res.Intent, res.Entities)
//
// Retrieval of the closest examples needs an encoder:
//
//	client, _ := ingres.New(ctx,
//	    ingres.WithGroq(key),
//	    ingres.WithExamples(intentFile, responseFile),
//	    ingres.WithEmbedder(myEncoder, 384),
//	)
//
// Without WithEmbedder every example in the files is placed in the prompt.
package ingres
