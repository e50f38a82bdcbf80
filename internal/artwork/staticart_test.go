package artwork

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const staticArtTestEndpoint = "https://static.artfetch.test"

func newMockedStaticArt(t *testing.T) *StaticArtProvider {
	t.Helper()

	p := NewStaticArtProvider(staticArtTestEndpoint, false)
	httpmock.ActivateNonDefault(p.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return p
}

func TestStaticArtFetchSuccess(t *testing.T) {
	p := newMockedStaticArt(t)

	httpmock.RegisterResponder(http.MethodGet, staticArtTestEndpoint+"/items/tt0111161.json",
		httpmock.NewStringResponder(http.StatusOK,
			`{"id":"tt0111161","name":"The Shawshank Redemption","image_url":"https://cdn.artfetch.test/tt0111161.jpg"}`))

	art, err := p.Fetch(context.Background(), "tt0111161", "The Shawshank Redemption")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.artfetch.test/tt0111161.jpg", art.URL)
	assert.Equal(t, "staticart", art.Source)
	assert.Equal(t, "tt0111161", art.ItemID)
}

func TestStaticArtFetchNotFound(t *testing.T) {
	p := newMockedStaticArt(t)

	httpmock.RegisterResponder(http.MethodGet, staticArtTestEndpoint+"/items/missing.json",
		httpmock.NewStringResponder(http.StatusNotFound, "not found"))

	_, err := p.Fetch(context.Background(), "missing", "Missing Item")
	assert.ErrorIs(t, err, ErrArtworkNotFound)
}

func TestStaticArtFetchEmptyImageURLIsNotFound(t *testing.T) {
	p := newMockedStaticArt(t)

	httpmock.RegisterResponder(http.MethodGet, staticArtTestEndpoint+"/items/noart.json",
		httpmock.NewStringResponder(http.StatusOK, `{"id":"noart","name":"No Art"}`))

	_, err := p.Fetch(context.Background(), "noart", "No Art")
	assert.ErrorIs(t, err, ErrArtworkNotFound)
}

func TestStaticArtFetchServerError(t *testing.T) {
	p := newMockedStaticArt(t)

	httpmock.RegisterResponder(http.MethodGet, staticArtTestEndpoint+"/items/err.json",
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	_, err := p.Fetch(context.Background(), "err", "Broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrArtworkNotFound)
	assert.Equal(t, errKindTransport, errorKind(err))
}

func TestStaticArtFetchInvalidJSON(t *testing.T) {
	p := newMockedStaticArt(t)

	httpmock.RegisterResponder(http.MethodGet, staticArtTestEndpoint+"/items/garbage.json",
		httpmock.NewStringResponder(http.StatusOK, "<html>surprise</html>"))

	_, err := p.Fetch(context.Background(), "garbage", "Garbage")
	require.Error(t, err)
	assert.Equal(t, errKindTransport, errorKind(err))
}

func TestStaticArtFetchContextCancellation(t *testing.T) {
	p := newMockedStaticArt(t)

	httpmock.RegisterResponder(http.MethodGet, staticArtTestEndpoint+"/items/slow.json",
		func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := p.Fetch(ctx, "slow", "Slow Item")
	assert.ErrorIs(t, err, ErrFetchTimeout)
}

func TestStaticArtHealthCheck(t *testing.T) {
	p := newMockedStaticArt(t)

	httpmock.RegisterResponder(http.MethodHead, staticArtTestEndpoint+"/health",
		httpmock.NewStringResponder(http.StatusOK, ""))

	assert.NoError(t, p.HealthCheck(context.Background()))

	httpmock.RegisterResponder(http.MethodHead, staticArtTestEndpoint+"/health",
		httpmock.NewStringResponder(http.StatusInternalServerError, ""))

	assert.Error(t, p.HealthCheck(context.Background()))
}
