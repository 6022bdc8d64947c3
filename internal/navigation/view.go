// internal/navigation/view.go
package navigation

import (
	"fmt"
)

// View is the single active screen of a session.
type View int

const (
	ViewFeed View = iota
	ViewCart
	ViewProfile
	ViewSellerProfile
	ViewOrderHistory
	ViewCreatePost
	ViewSuccess
)

var viewNames = [...]string{
	ViewFeed:          "feed",
	ViewCart:          "cart",
	ViewProfile:       "profile",
	ViewSellerProfile: "seller-profile",
	ViewOrderHistory:  "order-history",
	ViewCreatePost:    "create-post",
	ViewSuccess:       "success",
}

func (v View) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return fmt.Sprintf("View(%d)", int(v))
	}
	return viewNames[v]
}

func (v View) valid() bool {
	return v >= ViewFeed && v <= ViewSuccess
}

// ParseView maps a wire name back to its View.
func ParseView(s string) (View, error) {
	for i, name := range viewNames {
		if name == s {
			return View(i), nil
		}
	}
	return ViewFeed, fmt.Errorf("unknown view %q", s)
}

func (v View) MarshalText() ([]byte, error) {
	if !v.valid() {
		return nil, fmt.Errorf("invalid view %d", int(v))
	}
	return []byte(v.String()), nil
}

func (v *View) UnmarshalText(text []byte) error {
	parsed, err := ParseView(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// directlyNavigable reports whether a feed action may select v. The
// seller profile needs a seller context and success is only reached through
// checkout.
func (v View) directlyNavigable() bool {
	switch v {
	case ViewFeed, ViewCart, ViewProfile, ViewOrderHistory, ViewCreatePost:
		return true
	case ViewSellerProfile, ViewSuccess:
		return false
	}
	return false
}

// FeedTab selects which products the feed lists.
type FeedTab int

const (
	TabForYou FeedTab = iota
	TabShop
)

func (t FeedTab) String() string {
	switch t {
	case TabForYou:
		return "for-you"
	case TabShop:
		return "shop"
	}
	return fmt.Sprintf("FeedTab(%d)", int(t))
}

func ParseFeedTab(s string) (FeedTab, error) {
	switch s {
	case "for-you":
		return TabForYou, nil
	case "shop":
		return TabShop, nil
	}
	return TabForYou, fmt.Errorf("unknown feed tab %q", s)
}

func (t FeedTab) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *FeedTab) UnmarshalText(text []byte) error {
	parsed, err := ParseFeedTab(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
