// Package ingestion turns source channel posts into catalog records.
//
// The Indexer derives a record from each post (title, release year and
// language), upserts it keyed by the post ID and, when the global notify
// setting is on, announces the new title to every user who has not opted
// out. Announcements run on a worker pool after Ingest returns; their
// failures are logged and never affect the indexing outcome.
//
// Basic usage:
//
//	indexer, err := ingestion.NewIndexer(repos.Catalog, repos.Users, repos.Settings, fanout,
//	    ingestion.WithPoolSize(4))
//	if err != nil {
//	    return err
//	}
//	defer indexer.Release()
//
//	outcome, err := indexer.Ingest(ctx, post)
package ingestion
