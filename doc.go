// Package ragkit provides an embedded retrieval pipeline for Go:
// deterministic document chunking, batched embedding, exact
// nearest-neighbor search, and crash-safe snapshot persistence behind a
// single engine façade.
//
// The engine starts empty. Build ingests documents end to end and
// persists the result; Load restores a previously persisted snapshot.
// Either transition makes the engine ready for queries.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	encoder := embedding.NewOpenAIEncoder(os.Getenv("OPENAI_API_KEY"))
//
//	engine, err := ragkit.New(encoder,
//	    ragkit.WithStorePath("./my-index"),
//	    ragkit.WithChunkSize(1000),
//	    ragkit.WithChunkOverlap(200),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = engine.Build(ctx, []ragkit.Document{
//	    {Text: doc1, Metadata: map[string]string{"source": "a.txt"}},
//	    {Text: doc2, Metadata: map[string]string{"source": "b.txt"}},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	results, err := engine.Query(ctx, "what is the capital of France?",
//	    func(o *ragkit.QueryOptions) {
//	        o.K = 3
//	        o.Filters = []metadata.Filter{metadata.Eq("source", "a.txt")}
//	    },
//	)
//
// On the next run, skip the rebuild:
//
//	if err := engine.Load(ctx); err != nil {
//	    // ragkit.ErrNotFound: nothing persisted yet, Build first.
//	}
//
// Scores are squared L2 distances: lower means more similar, and 0
// means an exact vector match.
//
// # Storage Backends
//
// Snapshots live in a blobstore. The default is a local directory;
// pass a different backend with WithStore:
//
//	store, err := s3.NewFromDefaultConfig(ctx, "my-bucket", "indexes/prod")
//	engine, err := ragkit.New(encoder, ragkit.WithStore(store))
//
// For concurrent writers on S3, wrap the store in a CommitStore so
// snapshot publication becomes a DynamoDB conditional write.
package ragkit
