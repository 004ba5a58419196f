// Package devindex embeds the device search engine in a Go program.
//
// The client indexes devices with dynamically typed attributes into a
// per-tenant bleve index and answers the same filter and sort queries as the
// devindex HTTP service.
//
//	client, _ := devindex.New()
//	defer client.Close()
//
//	client.Index(ctx, "tenant-1", devindex.Device{
//	    ID: "dev-1",
//	    Attributes: []devindex.Attribute{
//	        {Scope: "inventory", Name: "mac", Value: "00:11:22:33:44:55"},
//	        {Scope: "inventory", Name: "mem_total_kB", Value: 1024},
//	    },
//	})
//
//	res, _ := client.Search("tenant-1").
//	    Where("inventory", "mem_total_kB", devindex.Gt, 512).
//	    SortBy("inventory", "mac", devindex.Asc).
//	    Do(ctx)
package devindex
