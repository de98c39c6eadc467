package chat

import "testing"

func TestReactionTypeValid(t *testing.T) {
	for _, rt := range []ReactionType{ReactionLike, ReactionLaugh, ReactionSad, ReactionHeart, ReactionEmbarrassed} {
		if !rt.Valid() {
			t.Errorf("%q should be valid", rt)
		}
	}
	if ReactionType("thumbsdown").Valid() {
		t.Error("unknown reaction type should be invalid")
	}
}

func TestReactionEmojiRoundTrip(t *testing.T) {
	for _, rt := range []ReactionType{ReactionLike, ReactionLaugh, ReactionSad, ReactionHeart, ReactionEmbarrassed} {
		emoji := rt.Emoji()
		if emoji == "" {
			t.Errorf("%q has no emoji", rt)
			continue
		}
		if got := ReactionTypeForEmoji(emoji); got != rt {
			t.Errorf("emoji %q maps back to %q, want %q", emoji, got, rt)
		}
	}
}
