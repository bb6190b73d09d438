package models

import "fmt"

// Emotion is one of the ten selectable feelings. The stored value is the
// Korean display label; it appears verbatim in documents, API payloads and
// the model prompt.
type Emotion string

const (
	EmotionJoy         Emotion = "기쁨"
	EmotionSadness     Emotion = "슬픔"
	EmotionAnger       Emotion = "분노"
	EmotionAnxiety     Emotion = "불안"
	EmotionStress      Emotion = "스트레스"
	EmotionLoneliness  Emotion = "외로움"
	EmotionRegret      Emotion = "후회"
	EmotionFrustration Emotion = "좌절"
	EmotionConfusion   Emotion = "혼란"
	EmotionGratitude   Emotion = "감사"
)

// Emotions is the canonical ordering. Analytics tie-breaks follow this
// order, so it must stay stable.
var Emotions = []Emotion{
	EmotionJoy,
	EmotionSadness,
	EmotionAnger,
	EmotionAnxiety,
	EmotionStress,
	EmotionLoneliness,
	EmotionRegret,
	EmotionFrustration,
	EmotionConfusion,
	EmotionGratitude,
}

var emotionDescriptions = map[Emotion]string{
	EmotionJoy:         "행복하고 즐거운 상태",
	EmotionSadness:     "마음이 아프고 우울한 상태",
	EmotionAnger:       "화가 나고 짜증이 나는 상태",
	EmotionAnxiety:     "걱정이 많고 초조한 상태",
	EmotionStress:      "압박감과 중압감을 느끼는 상태",
	EmotionLoneliness:  "혼자라고 느끼는 상태",
	EmotionRegret:      "과거의 선택이나 행동에 대해 아쉬움을 느끼는 상태",
	EmotionFrustration: "목표 달성에 실패하고 실망한 상태",
	EmotionConfusion:   "명확한 방향이나 생각을 잡지 못하는 상태",
	EmotionGratitude:   "고마움을 느끼는 상태",
}

var emotionIcons = map[Emotion]string{
	EmotionJoy:         "😊",
	EmotionSadness:     "😢",
	EmotionAnger:       "😠",
	EmotionAnxiety:     "😰",
	EmotionStress:      "😫",
	EmotionLoneliness:  "😔",
	EmotionRegret:      "😞",
	EmotionFrustration: "😩",
	EmotionConfusion:   "😕",
	EmotionGratitude:   "🙏",
}

// Valid reports whether e is one of the selectable emotions.
func (e Emotion) Valid() bool {
	_, ok := emotionDescriptions[e]
	return ok
}

// Description returns the short Korean description of the emotion, empty
// for unknown values.
func (e Emotion) Description() string {
	return emotionDescriptions[e]
}

// Icon returns the emoji shown next to the emotion, empty for unknown
// values.
func (e Emotion) Icon() string {
	return emotionIcons[e]
}

// ParseEmotion validates a raw label from the API.
func ParseEmotion(raw string) (Emotion, error) {
	e := Emotion(raw)
	if !e.Valid() {
		return "", fmt.Errorf("unknown emotion %q", raw)
	}
	return e, nil
}
