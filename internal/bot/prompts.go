package bot

import "strings"

// PromptKind tells the presentation adapter how to render a prompt.
type PromptKind int

const (
	PromptText PromptKind = iota
	PromptChoices
	PromptCarousel
)

// Choice is a labeled button that sends Data back as a postback.
type Choice struct {
	Label string
	Data  string
}

// Card is one panel of a carousel.
type Card struct {
	Title   string
	Image   string
	Choices []Choice
}

// Prompt is an abstract outgoing message. Images are catalog paths; turning
// them into URLs is the adapter's job.
type Prompt struct {
	Kind    PromptKind
	Text    string
	Title   string
	Image   string
	Choices []Choice
	Cards   []Card
}

func TextPrompt(text string) Prompt {
	return Prompt{Kind: PromptText, Text: text}
}

func ChoicePrompt(image, title string, choices ...Choice) Prompt {
	return Prompt{Kind: PromptChoices, Image: image, Title: title, Choices: choices}
}

func CarouselPrompt(cards ...Card) Prompt {
	return Prompt{Kind: PromptCarousel, Cards: cards}
}

// withLead prepends a text prompt when lead is not empty.
func withLead(lead string, prompts ...Prompt) []Prompt {
	if lead == "" {
		return prompts
	}
	return append([]Prompt{TextPrompt(lead)}, prompts...)
}

// Postback keys. Structured choices arrive as "key=value".
const (
	keyProduct   = "product"
	keyQuantity  = "qty"
	keyCampaign  = "campaign"
	keyVariation = "variation"
	keyColor     = "color"
	keySize      = "size"
	keySide      = "side"
	keyOptSet    = "optset"
	keyAddMore   = "addmore"
	keyConfirm   = "confirm"
	keyCustOK    = "cust_ok"
	keyPay       = "pay"

	keyIllPet     = "ill_pet"
	keyIllCompose = "ill_compose"
	keyIllStyle   = "ill_style"
	keyIllOption  = "ill_opt"
	keyIllRatio   = "ill_ratio"

	keyCanvasQty    = "can_qty"
	keyCanvasSource = "can_src"
	keyCanvasOption = "can_opt"

	keyStampPack    = "st_pack"
	keyStampPet     = "st_pet"
	keyStampPublish = "st_pub"

	// actionText is the table action for free text.
	actionText = "text"
)

const (
	answerYes = "yes"
	answerNo  = "no"
	toggleOn  = "on"
	toggleOff = "off"

	textOptionKey = "text"
)

func postback(key, value string) string {
	return key + "=" + value
}

// parsePostback splits "key=value" on the first '='.
func parsePostback(data string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(data, "=")
	if !ok || key == "" {
		return "", "", false
	}
	return key, value, true
}
