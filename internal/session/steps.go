package session

// Step is a state of the order state machine.
type Step string

const (
	StepIdle        Step = "idle"
	StepPickProduct Step = "pick_product"

	// apparel
	StepAskQuantity       Step = "ask_quantity"
	StepPickCampaignItem  Step = "pick_campaign_item"
	StepPickVariationItem Step = "pick_variation_item"
	StepPickColorItem     Step = "pick_color_item"
	StepPickSizeItem      Step = "pick_size_item"
	StepPickSideItem      Step = "pick_side_item"
	StepPickOptsItem      Step = "pick_opts_item"

	// illustration
	StepIllPetCount Step = "ill_petcount"
	StepIllCompose  Step = "ill_compose"
	StepIllStyle    Step = "ill_style"
	StepIllOption   Step = "ill_option"
	StepIllRatio    Step = "ill_ratio"

	// canvas art
	StepCanvasQty    Step = "canvas_qty"
	StepCanvasSource Step = "can_source"
	StepCanvasOption Step = "can_opt"

	// sticker pack
	StepStampPack    Step = "stamp_pack"
	StepStampPet     Step = "st_pet"
	StepStampPublish Step = "st_pub"

	// checkout
	StepAskAdditional       Step = "ask_additional"
	StepConfirmAll          Step = "confirm_all"
	StepAskCustomerName     Step = "ask_customer_name"
	StepAskCustomerPhone    Step = "ask_customer_phone"
	StepAskCustomerPostal   Step = "ask_customer_postal"
	StepAskCustomerAddress1 Step = "ask_customer_address1"
	StepAskCustomerAddress2 Step = "ask_customer_address2"
	StepConfirmCustomer     Step = "confirm_customer"
	StepPickPay             Step = "pick_pay"
	StepBank                Step = "bank"
	StepWaitingPayment      Step = "waiting_payment"
	StepCompleted           Step = "completed"
)

// ApparelUnitSteps are the steps in which one apparel unit is being configured.
var ApparelUnitSteps = []Step{
	StepPickCampaignItem,
	StepPickVariationItem,
	StepPickColorItem,
	StepPickSizeItem,
	StepPickSideItem,
	StepPickOptsItem,
}
