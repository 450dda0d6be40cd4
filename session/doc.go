// Package session runs mutators and analyses across a batch of web maps.
//
// A [Session] fetches each web map from a [Store], applies a [Mutator] in the
// session's [mutation.Mode], and persists the document when something
// changed. Failures are recorded on the document result and on the affected
// outcomes; they never stop the rest of the batch. In [mutation.DryRun] mode
// the store is never asked to persist anything.
//
// Stores that can save single layers implement [LayerPersister]; a failed
// layer save then only fails that layer's outcomes. Stores that implement
// [Copier] can save the edited map as a new item instead of overwriting it.
//
// # Example
//
//	s := session.New(store, mutation.Apply, session.WithLogger(logger))
//	batch := s.Run(ctx, []session.Job{
//		{WebMapID: "a1b2", Mutator: filter.New("project_number", "project_number = '1'", mutation.Apply)},
//	})
//	if !batch.Success {
//		for _, d := range batch.Failed() {
//			fmt.Println(d.WebMapID, d.Error)
//		}
//	}
package session
