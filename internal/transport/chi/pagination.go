package chi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/devindex/internal/domain/search/request"
	"github.com/kailas-cloud/devindex/internal/domain/search/result"
)

const hdrTotalCount = "X-Total-Count"

// setPaginationHeaders writes X-Total-Count and an RFC 5988 Link header with
// first, prev, next and last relations. Links never point past the result window.
func setPaginationHeaders(w http.ResponseWriter, r *http.Request, page result.Page) {
	w.Header().Set(hdrTotalCount, strconv.Itoa(page.Total()))

	last := min(page.LastPage(), request.MaxResultWindow/page.PerPage())
	links := []string{pageLink(r, 1, page.PerPage(), "first")}
	if page.Page() > 1 {
		links = append(links, pageLink(r, page.Page()-1, page.PerPage(), "prev"))
	}
	if page.Page() < last {
		links = append(links, pageLink(r, page.Page()+1, page.PerPage(), "next"))
	}
	links = append(links, pageLink(r, max(last, 1), page.PerPage(), "last"))
	w.Header().Set("Link", strings.Join(links, ", "))
}

func pageLink(r *http.Request, page, perPage int, rel string) string {
	u := url.URL{Path: r.URL.Path}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	u.RawQuery = q.Encode()
	return fmt.Sprintf("<%s>; rel=%q", u.String(), rel)
}
