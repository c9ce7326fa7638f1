package monitor

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"

	"github.com/samvad-hq/reqwatch/internal/domain"
	"github.com/samvad-hq/reqwatch/pkg/httpclient"
	"github.com/samvad-hq/reqwatch/pkg/request"
	"github.com/samvad-hq/reqwatch/pkg/targets"
)

// newSettlement converts a settled controller state into a domain record.
func newSettlement(t targets.Target, st request.State) domain.Settlement {
	out := domain.Settlement{
		TargetID:  t.ID,
		URL:       t.URL,
		Attempt:   st.Attempt,
		SettledAt: time.Now().UTC(),
	}

	if st.Err == nil {
		out.Outcome = domain.OutcomeSuccess
		out.Data = st.Data
		if st.Response != nil {
			out.StatusCode = st.Response.StatusCode()
			out.Digest = digest(st.Response.Body())
		}
		return out
	}

	out.Outcome = domain.OutcomeFailure
	if errors.Is(st.Err, request.ErrCanceled) {
		out.Outcome = domain.OutcomeCanceled
	}
	out.Error = st.Err.Error()

	var statusErr *httpclient.StatusError
	if errors.As(st.Err, &statusErr) {
		out.StatusCode = statusErr.StatusCode()
	}
	return out
}

func digest(body []byte) string {
	sum := sha1.Sum(body)
	return hex.EncodeToString(sum[:])
}
