// Package servicesearch embeds the service catalog search pipeline in a Go
// program without running the HTTP API.
//
// The client connects to the catalog database, loads an embedding backend and
// ranks services by semantic similarity to a free-text query, optionally
// restricted to a radius around a point.
//
// # Semantic search
//
//	client, _ := servicesearch.New(ctx,
//	    servicesearch.WithDatabase("localhost", 5432, "dataplatform", "postgres", ""),
//	    servicesearch.WithONNX("./models/bge-small", ""),
//	)
//	defer client.Close()
//	hits, _ := client.Search(ctx, "food pantry", servicesearch.Limit(5))
//
// # Geo-filtered search
//
//	hits, _ := client.Search(ctx, "legal aid", servicesearch.Near(38.8951, -77.0364))
//
// Hits inside the radius are still ordered by similarity; Distance is set only
// for geo-filtered searches.
package servicesearch
